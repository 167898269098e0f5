package repository

import (
	"context"
	"database/sql"
	"strings"

	"fieldDispatch/models"
)

// List returns jobs matching the filter ordered by created_at desc.
func (r *JobRepository) List(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var where []string
	var args []any
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.TechnicianID != nil {
		where = append(where, "technician_id = ?")
		args = append(args, *f.TechnicianID)
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobRows(rows)
}

// ListActiveByTechnicians returns ASSIGNED/IN_PROGRESS jobs grouped by technician id.
func (r *JobRepository) ListActiveByTechnicians(ctx context.Context) (map[string][]models.ActiveJob, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	args := make([]any, 0, len(models.ActiveStatuses))
	for _, s := range models.ActiveStatuses {
		args = append(args, string(s))
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT id, title, status, scheduled_at, technician_id
FROM jobs
WHERE technician_id IS NOT NULL AND status IN (`+placeholders(len(args))+`)
ORDER BY created_at ASC, id ASC`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]models.ActiveJob{}
	for rows.Next() {
		var a models.ActiveJob
		var status, technicianID string
		var scheduled sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &status, &scheduled, &technicianID); err != nil {
			return nil, err
		}
		a.Status = models.JobStatus(status)
		if a.ScheduledAt, err = timePtr(scheduled); err != nil {
			return nil, err
		}
		out[technicianID] = append(out[technicianID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanJobRows is a helper to scan rows into Job objects.
func scanJobRows(rows *sql.Rows) ([]models.Job, error) {
	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
