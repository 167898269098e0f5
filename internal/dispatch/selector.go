package dispatch

import "fieldDispatch/models"

// Selector picks the technician for a job from the idle candidates, which are
// given in resolver order. It reports false to leave the job unassigned.
type Selector interface {
	Select(candidates []models.Technician, job *models.Job) (models.Technician, bool)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(candidates []models.Technician, job *models.Job) (models.Technician, bool)

func (f SelectorFunc) Select(candidates []models.Technician, job *models.Job) (models.Technician, bool) {
	return f(candidates, job)
}

// FirstAvailable takes the first candidate. No distance, skill or load is considered.
type FirstAvailable struct{}

func (FirstAvailable) Select(candidates []models.Technician, _ *models.Job) (models.Technician, bool) {
	if len(candidates) == 0 {
		return models.Technician{}, false
	}
	return candidates[0], true
}

// without returns candidates minus the technician with id, and whether one was removed.
func without(candidates []models.Technician, id string) ([]models.Technician, bool) {
	for i := range candidates {
		if candidates[i].ID == id {
			out := make([]models.Technician, 0, len(candidates)-1)
			out = append(out, candidates[:i]...)
			return append(out, candidates[i+1:]...), true
		}
	}
	return candidates, false
}
