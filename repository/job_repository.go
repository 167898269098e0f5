package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldDispatch/internal/db"
	"fieldDispatch/models"
)

const jobColumns = `id, title, description, priority, customer_id, customer_name, customer_phone, customer_email,
location_id, scheduled_at, estimated_duration, status, technician_id, completed_at, created_at, updated_at`

// JobRepository is the core repository for Job entities and the locations they own.
type JobRepository struct {
	db  *db.DB
	now func() time.Time
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(d *db.DB) *JobRepository {
	return &JobRepository{db: d, now: time.Now}
}

// Create inserts loc and j in one transaction. Status defaults to PENDING and
// priority to MEDIUM. CreatedAt is kept when already set.
func (r *JobRepository) Create(ctx context.Context, j *models.Job, loc *models.Location) (*models.Job, error) {
	if j == nil || loc == nil {
		return nil, errors.New("job and location are required")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := r.now().UTC()
	l := *loc
	l.ID = newID()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	out := *j
	out.ID = newID()
	out.LocationID = l.ID
	if out.Status == "" {
		out.Status = models.JobStatusPending
	}
	if out.Priority == "" {
		out.Priority = models.PriorityMedium
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = out.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO locations (id, address, city, state, zip_code, latitude, longitude, created_at) VALUES (?,?,?,?,?,?,?,?)`),
		l.ID, l.Address, l.City, l.State, l.ZipCode, l.Latitude, l.Longitude, formatTime(l.CreatedAt)); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert location: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO jobs (`+jobColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		out.ID, out.Title, nullableString(out.Description), string(out.Priority), out.CustomerID, out.CustomerName,
		nullableString(out.CustomerPhone), nullableString(out.CustomerEmail), out.LocationID, nullableTime(out.ScheduledAt),
		nullableInt(out.EstimatedDuration), string(out.Status), nullableString(out.TechnicianID), nullableTime(out.CompletedAt),
		formatTime(out.CreatedAt), formatTime(out.UpdatedAt)); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created, err := r.GetByID(ctx, out.ID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created job not found: id=%s", out.ID)
	}
	return created, nil
}

// GetByID fetches a job by its ID. It returns (nil, nil) when no such job exists.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

// GetLocation fetches a location by its ID.
func (r *JobRepository) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var l models.Location
	var created string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, address, city, state, zip_code, latitude, longitude, created_at FROM locations WHERE id = ?`), id).
		Scan(&l.ID, &l.Address, &l.City, &l.State, &l.ZipCode, &l.Latitude, &l.Longitude, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if l.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &l, nil
}

// Update applies a partial update. Unset fields are untouched.
//
// Guards in u turn the write into a conditional update: it only applies while
// the job still has u.RequireStatus and, with u.RequireTechnicianIdle, while
// u.TechnicianID holds no other active job. When the job does not exist or a
// guard rejects the write, Update returns (nil, nil).
func (r *JobRepository) Update(ctx context.Context, id string, u models.JobUpdate) (*models.Job, error) {
	if u.Empty() {
		return r.GetByID(ctx, id)
	}
	if u.RequireTechnicianIdle && u.TechnicianID == nil {
		return nil, errors.New("technician guard requires a technician id")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sets []string
	var args []any
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.TechnicianID != nil {
		sets = append(sets, "technician_id = ?")
		args = append(args, *u.TechnicianID)
	}
	if u.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, formatTime(*u.CompletedAt))
	} else if u.ClearCompletedAt {
		sets = append(sets, "completed_at = NULL")
	}
	if u.ScheduledAt != nil {
		sets = append(sets, "scheduled_at = ?")
		args = append(args, formatTime(*u.ScheduledAt))
	}
	if u.EstimatedDuration != nil {
		sets = append(sets, "estimated_duration = ?")
		args = append(args, *u.EstimatedDuration)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(r.now()))

	where := []string{"id = ?"}
	args = append(args, id)
	if u.RequireStatus != nil {
		where = append(where, "status = ?")
		args = append(args, string(*u.RequireStatus))
	}
	if u.RequireTechnicianIdle {
		where = append(where, `NOT EXISTS (
        SELECT 1 FROM jobs a
        WHERE a.technician_id = ? AND a.id <> jobs.id AND a.status IN (`+placeholders(len(models.ActiveStatuses))+`))`)
		args = append(args, *u.TechnicianID)
		for _, s := range models.ActiveStatuses {
			args = append(args, string(s))
		}
	}

	query := "UPDATE jobs SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(where, " AND ")
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Delete removes a job and the location it owns. It reports whether a job was removed.
// Dispatch log entries are kept.
func (r *JobRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	var locationID string
	err = tx.QueryRowContext(ctx, r.db.Rebind(`SELECT location_id FROM jobs WHERE id = ?`), id).Scan(&locationID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM jobs WHERE id = ?`), id); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM locations WHERE id = ?`), locationID); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	return true, tx.Commit()
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var priority, status, created, updated string
	var description, phone, email, technician, scheduled, completed sql.NullString
	var duration sql.NullInt64
	if err := row.Scan(&j.ID, &j.Title, &description, &priority, &j.CustomerID, &j.CustomerName, &phone, &email,
		&j.LocationID, &scheduled, &duration, &status, &technician, &completed, &created, &updated); err != nil {
		return nil, err
	}
	j.Priority = models.Priority(priority)
	j.Status = models.JobStatus(status)
	j.Description = stringPtr(description)
	j.CustomerPhone = stringPtr(phone)
	j.CustomerEmail = stringPtr(email)
	j.TechnicianID = stringPtr(technician)
	j.EstimatedDuration = intPtr(duration)
	var err error
	if j.ScheduledAt, err = timePtr(scheduled); err != nil {
		return nil, err
	}
	if j.CompletedAt, err = timePtr(completed); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &j, nil
}
