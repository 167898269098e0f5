package dispatch

import (
	"context"

	"fieldDispatch/models"
)

// Availability resolves the technicians holding no ASSIGNED or IN_PROGRESS job.
// Every call reads the store; nothing is cached.
type Availability struct {
	store TechnicianStore
}

func NewAvailability(store TechnicianStore) *Availability {
	return &Availability{store: store}
}

// Available returns the currently idle technicians in resolver order.
// An empty result is not an error.
func (a *Availability) Available(ctx context.Context) ([]models.Technician, error) {
	techs, err := a.store.ListAvailableTechnicians(ctx)
	if err != nil {
		return nil, persistence("list available technicians", err)
	}
	if techs == nil {
		techs = []models.Technician{}
	}
	return techs, nil
}
