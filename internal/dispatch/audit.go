package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fieldDispatch/models"
)

// AuditLog appends dispatch log entries. It has no decision logic.
type AuditLog struct {
	store  LogStore
	now    func() time.Time
	logger *slog.Logger
}

// NewAuditLog creates an audit writer over store.
func NewAuditLog(store LogStore, opts ...Option) *AuditLog {
	o := buildOptions(opts)
	return &AuditLog{store: store, now: o.now, logger: o.logger}
}

// Append records one entry for jobID. Only the action is validated.
// A store failure is returned as ErrPersistence.
func (a *AuditLog) Append(ctx context.Context, jobID string, action models.DispatchAction, details string) (*models.DispatchLogEntry, error) {
	if !action.Valid() {
		return nil, invalid("unknown dispatch action %q", action)
	}
	e := &models.DispatchLogEntry{
		JobID:     jobID,
		Action:    action,
		Details:   details,
		CreatedAt: a.now().UTC(),
	}
	if err := a.store.AppendDispatchLog(ctx, e); err != nil {
		a.logger.Error("dispatch log append failed",
			slog.String("job_id", jobID),
			slog.String("action", string(action)),
			slog.Any("error", err))
		return nil, persistence(fmt.Sprintf("append %s log for job %s", action, jobID), err)
	}
	return e, nil
}

// History returns the entries for jobID, oldest first.
func (a *AuditLog) History(ctx context.Context, jobID string) ([]models.DispatchLogEntry, error) {
	entries, err := a.store.ListDispatchLogs(ctx, jobID)
	if err != nil {
		return nil, persistence("list dispatch logs", err)
	}
	return entries, nil
}
