package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"fieldDispatch/internal/db"
	"fieldDispatch/models"
)

const userColumns = `id, name, email, role, created_at`

type UserRepository struct {
	db *db.DB
}

func NewUserRepository(d *db.DB) *UserRepository {
	return &UserRepository{db: d}
}

// Create inserts a new user. Role defaults to TECHNICIAN.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	if u.Role == "" {
		u.Role = models.RoleTechnician
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := *u
	out.ID = newID()
	out.Email = strings.ToLower(strings.TrimSpace(u.Email))
	out.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO users (id, name, email, role, created_at) VALUES (?,?,?,?,?)`),
		out.ID, out.Name, out.Email, string(out.Role), formatTime(out.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Upsert returns the user with u's email, creating it first if it does not exist.
// Existing rows are left untouched.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	existing, err := r.GetByEmail(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return r.Create(ctx, u)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ListByRole returns users with the given role, oldest first.
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at ASC, id ASC`), string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserRows(rows)
}

// ListAvailableTechnicians returns technicians holding no ASSIGNED or IN_PROGRESS job,
// oldest account first. It always reads the current table state.
func (r *UserRepository) ListAvailableTechnicians(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	args := []any{string(models.RoleTechnician)}
	for _, s := range models.ActiveStatuses {
		args = append(args, string(s))
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT u.id, u.name, u.email, u.role, u.created_at
FROM users u
WHERE u.role = ?
  AND NOT EXISTS (
        SELECT 1 FROM jobs j
        WHERE j.technician_id = u.id AND j.status IN (`+placeholders(len(models.ActiveStatuses))+`)
      )
ORDER BY u.created_at ASC, u.id ASC`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserRows(rows)
}

// UpdateRoleByEmail sets the role for the given email.
func (r *UserRepository) UpdateRoleByEmail(ctx context.Context, email string, role models.Role) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET role = ? WHERE email = ?`), string(role), strings.ToLower(strings.TrimSpace(email)))
	return err
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role, created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &created); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

func scanUserRows(rows *sql.Rows) ([]models.User, error) {
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
