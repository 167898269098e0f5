package repository

import (
	"context"

	"fieldDispatch/internal/db"
	"fieldDispatch/models"
)

// Store bundles the repositories behind the single store boundary the dispatch core consumes.
type Store struct {
	Users *UserRepository
	Jobs  *JobRepository
	Logs  *DispatchLogRepository
}

// NewStore creates repositories sharing one database handle.
func NewStore(d *db.DB) *Store {
	return &Store{
		Users: NewUserRepository(d),
		Jobs:  NewJobRepository(d),
		Logs:  NewDispatchLogRepository(d),
	}
}

func (s *Store) FindJob(ctx context.Context, id string) (*models.Job, error) {
	return s.Jobs.GetByID(ctx, id)
}

func (s *Store) ListJobs(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	return s.Jobs.List(ctx, f)
}

func (s *Store) CreateJob(ctx context.Context, j *models.Job, loc *models.Location) (*models.Job, error) {
	return s.Jobs.Create(ctx, j, loc)
}

func (s *Store) UpdateJob(ctx context.Context, id string, u models.JobUpdate) (*models.Job, error) {
	return s.Jobs.Update(ctx, id, u)
}

func (s *Store) DeleteJob(ctx context.Context, id string) (bool, error) {
	return s.Jobs.Delete(ctx, id)
}

func (s *Store) FindLocation(ctx context.Context, id string) (*models.Location, error) {
	return s.Jobs.GetLocation(ctx, id)
}

func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *Store) ListAvailableTechnicians(ctx context.Context) ([]models.Technician, error) {
	return s.Users.ListAvailableTechnicians(ctx)
}

// ListTechniciansWithLoad returns every technician with their active jobs attached.
func (s *Store) ListTechniciansWithLoad(ctx context.Context) ([]models.TechnicianLoad, error) {
	techs, err := s.Users.ListByRole(ctx, models.RoleTechnician)
	if err != nil {
		return nil, err
	}
	active, err := s.Jobs.ListActiveByTechnicians(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.TechnicianLoad, 0, len(techs))
	for _, t := range techs {
		jobs := active[t.ID]
		if jobs == nil {
			jobs = []models.ActiveJob{}
		}
		out = append(out, models.TechnicianLoad{Technician: t, Jobs: jobs})
	}
	return out, nil
}

func (s *Store) AppendDispatchLog(ctx context.Context, e *models.DispatchLogEntry) error {
	return s.Logs.Append(ctx, e)
}

func (s *Store) ListDispatchLogs(ctx context.Context, jobID string) ([]models.DispatchLogEntry, error) {
	return s.Logs.ListByJob(ctx, jobID)
}
