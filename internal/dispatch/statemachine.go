package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fieldDispatch/models"
)

// errAssignmentConflict is returned when a guarded dispatch write was rejected
// by the store: the job left PENDING or the technician picked up another job.
var errAssignmentConflict = errors.New("dispatch: assignment conflict")

// Change is a requested transition. Any field may be nil; when Status and
// TechnicianID match the job's current values and no field write is set, the
// transition is a no-op.
type Change struct {
	Status       *models.JobStatus
	TechnicianID *string
	// ScheduledAt and EstimatedDuration are plain field writes carried by the
	// same store update. They never produce an audit entry.
	ScheduledAt       *time.Time
	EstimatedDuration *int
	// Details overrides the audit text recorded for this transition.
	Details string

	// dispatch marks an engine assignment: the write is guarded on the job
	// still being PENDING and the technician still being idle, and the audit
	// action is always ASSIGNED.
	dispatch bool
}

// StateMachine validates and applies status transitions for a single job.
// It accepts any recognized status as a target, including backward moves.
type StateMachine struct {
	jobs   JobStore
	techs  TechnicianStore
	audit  *AuditLog
	now    func() time.Time
	logger *slog.Logger
}

// NewStateMachine creates a state machine writing through store and audit.
func NewStateMachine(store Store, audit *AuditLog, opts ...Option) *StateMachine {
	o := buildOptions(opts)
	return &StateMachine{jobs: store, techs: store, audit: audit, now: o.now, logger: o.logger}
}

// TransitionByID loads the job and applies c to it.
func (m *StateMachine) TransitionByID(ctx context.Context, id string, c Change) (*models.Job, error) {
	job, err := m.jobs.FindJob(ctx, id)
	if err != nil {
		return nil, persistence("find job", err)
	}
	if job == nil {
		return nil, notFound("job", id)
	}
	return m.Transition(ctx, job, c)
}

// Transition applies c to job, which must have been read from the store
// immediately before the call.
//
// A technician change forces status ASSIGNED and is logged as ASSIGNED, or
// REASSIGNED when a technician was already set. A status change alone logs
// STARTED, COMPLETED or CANCELLED; PENDING and ASSIGNED targets are not logged.
// Entering COMPLETED stamps CompletedAt; leaving it clears the stamp.
//
// If the job write succeeds but the audit append fails, the updated job is
// returned together with an ErrPersistence error.
func (m *StateMachine) Transition(ctx context.Context, job *models.Job, c Change) (*models.Job, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job", ErrNotFound)
	}
	if c.Status != nil && !c.Status.Valid() {
		return nil, invalid("unknown status %q", *c.Status)
	}
	if c.TechnicianID != nil && !c.dispatch {
		if err := m.checkTechnician(ctx, *c.TechnicianID); err != nil {
			return nil, err
		}
	}

	techChange := c.TechnicianID != nil && (c.dispatch || *c.TechnicianID != job.AssignedTo())
	statusChange := c.Status != nil && *c.Status != job.Status
	fieldChange := c.ScheduledAt != nil || c.EstimatedDuration != nil
	if !techChange && !statusChange && !fieldChange {
		return job, nil
	}

	var (
		u       models.JobUpdate
		action  models.DispatchAction
		details = c.Details
	)
	if techChange {
		status := models.JobStatusAssigned
		u.Status = &status
		u.TechnicianID = c.TechnicianID
		switch {
		case c.dispatch:
			pending := models.JobStatusPending
			u.RequireStatus = &pending
			u.RequireTechnicianIdle = true
			action = models.ActionAssigned
		case job.TechnicianID != nil:
			action = models.ActionReassigned
		default:
			action = models.ActionAssigned
		}
		if details == "" {
			if action == models.ActionReassigned {
				details = "Job reassigned to technician"
			} else {
				details = "Job assigned to technician"
			}
		}
		if job.Status == models.JobStatusCompleted {
			u.ClearCompletedAt = true
		}
	} else if statusChange {
		u.Status = c.Status
		switch *c.Status {
		case models.JobStatusCompleted:
			now := m.now().UTC()
			u.CompletedAt = &now
			action = models.ActionCompleted
		case models.JobStatusCancelled:
			action = models.ActionCancelled
		case models.JobStatusInProgress:
			action = models.ActionStarted
		}
		if job.Status == models.JobStatusCompleted {
			u.ClearCompletedAt = true
		}
		if details == "" {
			details = fmt.Sprintf("Status changed to %s", *c.Status)
		}
	}

	u.ScheduledAt = c.ScheduledAt
	u.EstimatedDuration = c.EstimatedDuration

	updated, err := m.jobs.UpdateJob(ctx, job.ID, u)
	if err != nil {
		return nil, persistence("update job", err)
	}
	if updated == nil {
		if c.dispatch {
			return nil, errAssignmentConflict
		}
		return nil, notFound("job", job.ID)
	}
	if job.Status.Terminal() && updated.Status != job.Status {
		m.logger.Warn("job reopened from terminal status",
			slog.String("job_id", updated.ID),
			slog.String("from", string(job.Status)),
			slog.String("to", string(updated.Status)))
	}
	if action == "" {
		return updated, nil
	}
	if _, err := m.audit.Append(ctx, updated.ID, action, details); err != nil {
		return updated, err
	}
	m.logger.Debug("job transitioned",
		slog.String("job_id", updated.ID),
		slog.String("status", string(updated.Status)),
		slog.String("action", string(action)))
	return updated, nil
}

func (m *StateMachine) checkTechnician(ctx context.Context, id string) error {
	if id == "" {
		return invalid("technician id is empty")
	}
	u, err := m.techs.FindUser(ctx, id)
	if err != nil {
		return persistence("find technician", err)
	}
	if u == nil {
		return invalid("technician %q does not exist", id)
	}
	if u.Role != models.RoleTechnician {
		return invalid("user %q is not a technician", id)
	}
	return nil
}
