package repository

import (
	"context"
	"errors"
	"time"

	"fieldDispatch/internal/db"
	"fieldDispatch/models"
)

// DispatchLogRepository stores the append-only audit trail. It has no update or delete.
type DispatchLogRepository struct {
	db  *db.DB
	now func() time.Time
}

func NewDispatchLogRepository(d *db.DB) *DispatchLogRepository {
	return &DispatchLogRepository{db: d, now: time.Now}
}

// Append inserts e, assigning its ID and (if unset) its timestamp.
func (r *DispatchLogRepository) Append(ctx context.Context, e *models.DispatchLogEntry) error {
	if e == nil {
		return errors.New("dispatch log entry is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	e.ID = newID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO dispatch_logs (id, job_id, action, details, created_at) VALUES (?,?,?,?,?)`),
		e.ID, e.JobID, string(e.Action), e.Details, formatTime(e.CreatedAt))
	return err
}

// ListByJob returns a job's entries oldest first.
func (r *DispatchLogRepository) ListByJob(ctx context.Context, jobID string) ([]models.DispatchLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT id, job_id, action, details, created_at FROM dispatch_logs WHERE job_id = ? ORDER BY created_at ASC, id ASC`), jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DispatchLogEntry
	for rows.Next() {
		var e models.DispatchLogEntry
		var action, created string
		if err := rows.Scan(&e.ID, &e.JobID, &action, &e.Details, &created); err != nil {
			return nil, err
		}
		e.Action = models.DispatchAction(action)
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
