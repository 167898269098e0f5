// Package seed loads YAML fixtures of users and jobs into a store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fieldDispatch/internal/dispatch"
	"fieldDispatch/models"
)

// Fixture is the YAML document shape.
type Fixture struct {
	Users []UserSpec        `yaml:"users"`
	Jobs  []dispatch.NewJob `yaml:"jobs"`
}

// UserSpec describes a user to upsert. Role defaults to TECHNICIAN.
type UserSpec struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// UserStore is satisfied by repository.UserRepository.
type UserStore interface {
	Upsert(ctx context.Context, u *models.User) (*models.User, error)
	UpdateRoleByEmail(ctx context.Context, email string, role models.Role) error
}

// JobCreator is satisfied by dispatch.Service.
type JobCreator interface {
	CreateJob(ctx context.Context, in dispatch.NewJob) (*models.Job, error)
}

// Result lists what Apply wrote, in fixture order.
type Result struct {
	Users []*models.User
	Jobs  []*models.Job
}

// Parse decodes a fixture and checks every user entry.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, u := range f.Users {
		if strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Email) == "" {
			return nil, fmt.Errorf("users[%d]: name and email are required", i)
		}
		if _, err := roleOf(u.Role); err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
	}
	return &f, nil
}

// LoadFile reads and parses the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func roleOf(s string) (models.Role, error) {
	if strings.TrimSpace(s) == "" {
		return models.RoleTechnician, nil
	}
	r := models.Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Apply upserts users by email and creates every job through jobs, so each job
// gets its creation log entry. An existing user takes the fixture's role when
// the entry names one; entries without a role leave the stored role alone.
// Jobs are not deduplicated: applying a fixture twice creates its jobs twice.
func Apply(ctx context.Context, users UserStore, jobs JobCreator, f *Fixture, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{}
	for i, entry := range f.Users {
		role, err := roleOf(entry.Role)
		if err != nil {
			return res, fmt.Errorf("users[%d]: %w", i, err)
		}
		u, err := users.Upsert(ctx, &models.User{Name: entry.Name, Email: entry.Email, Role: role})
		if err != nil {
			return res, fmt.Errorf("upsert user %s: %w", entry.Email, err)
		}
		if strings.TrimSpace(entry.Role) != "" && u.Role != role {
			if err := users.UpdateRoleByEmail(ctx, u.Email, role); err != nil {
				return res, fmt.Errorf("update role for %s: %w", u.Email, err)
			}
			logger.Info("seeded user role changed", slog.String("email", u.Email),
				slog.String("from", string(u.Role)), slog.String("to", string(role)))
			u.Role = role
		}
		res.Users = append(res.Users, u)
		logger.Debug("seeded user", slog.String("id", u.ID), slog.String("email", u.Email), slog.String("role", string(u.Role)))
	}
	for i, in := range f.Jobs {
		j, err := jobs.CreateJob(ctx, in)
		if err != nil {
			return res, fmt.Errorf("jobs[%d] %q: %w", i, in.Title, err)
		}
		res.Jobs = append(res.Jobs, j)
		logger.Debug("seeded job", slog.String("id", j.ID), slog.String("title", j.Title))
	}
	logger.Info("fixture applied", slog.Int("users", len(res.Users)), slog.Int("jobs", len(res.Jobs)))
	return res, nil
}
