package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"fieldDispatch/models"
)

// AssignmentResult pairs a dispatched job with the technician it went to.
type AssignmentResult struct {
	Job        *models.Job       `json:"job"`
	Technician models.Technician `json:"technician"`
}

// Engine decides which technician receives which pending job.
type Engine struct {
	jobs     JobStore
	avail    *Availability
	sm       *StateMachine
	selector Selector
	logger   *slog.Logger
}

// NewEngine wires an engine over its collaborators.
func NewEngine(jobs JobStore, avail *Availability, sm *StateMachine, opts ...Option) *Engine {
	o := buildOptions(opts)
	return &Engine{jobs: jobs, avail: avail, sm: sm, selector: o.selector, logger: o.logger}
}

// DispatchOne assigns the PENDING job jobID to the selected idle technician.
// It fails with ErrNoCapacity when nobody can take the job.
func (e *Engine) DispatchOne(ctx context.Context, jobID string) (*AssignmentResult, error) {
	job, err := e.pendingJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	candidates, err := e.avail.Available(ctx)
	if err != nil {
		return nil, err
	}

	for len(candidates) > 0 {
		tech, ok := e.selector.Select(candidates, job)
		if !ok {
			break
		}
		details := fmt.Sprintf("Auto-assigned to %s using basic dispatch algorithm", tech.Name)
		updated, err := e.assign(ctx, job, tech, details)
		if errors.Is(err, errAssignmentConflict) {
			// Someone else moved first; the job must still be PENDING to retry.
			if job, err = e.pendingJob(ctx, jobID); err != nil {
				return nil, err
			}
			var removed bool
			if candidates, removed = without(candidates, tech.ID); !removed {
				break
			}
			continue
		}
		if err != nil {
			if updated != nil {
				return &AssignmentResult{Job: updated, Technician: tech}, err
			}
			return nil, err
		}
		return &AssignmentResult{Job: updated, Technician: tech}, nil
	}

	e.logger.Info("no technician available", slog.String("job_id", jobID))
	return nil, fmt.Errorf("%w: job %s", ErrNoCapacity, jobID)
}

// DispatchBatch assigns PENDING jobs, highest priority then oldest first, to
// the technicians idle at call start. Each technician takes at most one job;
// once they run out the remaining jobs stay PENDING and are not reported.
//
// On a store failure the assignments made so far are returned with the error.
func (e *Engine) DispatchBatch(ctx context.Context) ([]AssignmentResult, error) {
	pending := models.JobStatusPending
	jobs, err := e.jobs.ListJobs(ctx, models.JobFilter{Status: &pending})
	if err != nil {
		return nil, persistence("list pending jobs", err)
	}
	candidates, err := e.avail.Available(ctx)
	if err != nil {
		return nil, err
	}
	results := []AssignmentResult{}
	if len(jobs) == 0 || len(candidates) == 0 {
		e.logger.Info("batch dispatch: nothing to assign",
			slog.Int("pending", len(jobs)),
			slog.Int("available", len(candidates)))
		return results, nil
	}
	SortForDispatch(jobs)

	for i := range jobs {
		if len(candidates) == 0 {
			break
		}
		job := &jobs[i]
		for len(candidates) > 0 {
			tech, ok := e.selector.Select(candidates, job)
			if !ok {
				break
			}
			updated, err := e.assign(ctx, job, tech, fmt.Sprintf("Batch assigned to %s", tech.Name))
			if errors.Is(err, errAssignmentConflict) {
				current, ferr := e.jobs.FindJob(ctx, job.ID)
				if ferr != nil {
					return results, persistence("find job", ferr)
				}
				if current == nil || current.Status != models.JobStatusPending {
					// The job was handled elsewhere; keep the technician for the next job.
					break
				}
				job = current
				var removed bool
				if candidates, removed = without(candidates, tech.ID); !removed {
					break
				}
				continue
			}
			if err != nil {
				if updated != nil {
					results = append(results, AssignmentResult{Job: updated, Technician: tech})
				}
				return results, err
			}
			results = append(results, AssignmentResult{Job: updated, Technician: tech})
			candidates, _ = without(candidates, tech.ID)
			break
		}
	}

	e.logger.Info("batch dispatch finished",
		slog.Int("pending", len(jobs)),
		slog.Int("assigned", len(results)))
	return results, nil
}

func (e *Engine) assign(ctx context.Context, job *models.Job, tech models.Technician, details string) (*models.Job, error) {
	id := tech.ID
	updated, err := e.sm.Transition(ctx, job, Change{TechnicianID: &id, Details: details, dispatch: true})
	if err == nil {
		e.logger.Info("job assigned",
			slog.String("job_id", job.ID),
			slog.String("technician_id", tech.ID),
			slog.String("action", string(models.ActionAssigned)))
	}
	return updated, err
}

func (e *Engine) pendingJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := e.jobs.FindJob(ctx, id)
	if err != nil {
		return nil, persistence("find job", err)
	}
	if job == nil {
		return nil, notFound("job", id)
	}
	if job.Status != models.JobStatusPending {
		return nil, fmt.Errorf("%w: job %s is %s, not PENDING", ErrInvalidState, id, job.Status)
	}
	return job, nil
}

// SortForDispatch orders jobs by priority descending, then creation time
// ascending. Ties fall back to id so the order is total.
func SortForDispatch(jobs []models.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
