package dispatch

import (
	"context"

	"fieldDispatch/models"
)

// JobStore reads and writes jobs and their locations.
// Lookups return (nil, nil) when the record does not exist.
type JobStore interface {
	FindJob(ctx context.Context, id string) (*models.Job, error)
	// ListJobs returns jobs ordered by creation time, newest first.
	ListJobs(ctx context.Context, f models.JobFilter) ([]models.Job, error)
	CreateJob(ctx context.Context, j *models.Job, loc *models.Location) (*models.Job, error)
	// UpdateJob applies a partial update and returns (nil, nil) when the job is
	// missing or a write guard in u rejected it.
	UpdateJob(ctx context.Context, id string, u models.JobUpdate) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) (bool, error)
	FindLocation(ctx context.Context, id string) (*models.Location, error)
}

// TechnicianStore reads technicians and their load.
type TechnicianStore interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	// ListAvailableTechnicians returns technicians with no ASSIGNED or
	// IN_PROGRESS job in a stable order.
	ListAvailableTechnicians(ctx context.Context) ([]models.Technician, error)
	ListTechniciansWithLoad(ctx context.Context) ([]models.TechnicianLoad, error)
}

// LogStore persists dispatch log entries. It never updates or deletes them.
type LogStore interface {
	AppendDispatchLog(ctx context.Context, e *models.DispatchLogEntry) error
	// ListDispatchLogs returns a job's entries oldest first.
	ListDispatchLogs(ctx context.Context, jobID string) ([]models.DispatchLogEntry, error)
}

// Store is the full persistence boundary of the dispatch core.
type Store interface {
	JobStore
	TechnicianStore
	LogStore
}
