package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"fieldDispatch/internal/geo"
	"fieldDispatch/models"
)

// NewJob is the input for creating a job and its location.
type NewJob struct {
	Title         string          `json:"title" yaml:"title"`
	Description   *string         `json:"description,omitempty" yaml:"description"`
	Priority      models.Priority `json:"priority,omitempty" yaml:"priority"`
	CustomerID    string          `json:"customerId" yaml:"customerId"`
	CustomerName  string          `json:"customerName" yaml:"customerName"`
	CustomerPhone *string         `json:"customerPhone,omitempty" yaml:"customerPhone"`
	CustomerEmail *string         `json:"customerEmail,omitempty" yaml:"customerEmail"`

	Address   string  `json:"address" yaml:"address"`
	City      string  `json:"city" yaml:"city"`
	State     string  `json:"state" yaml:"state"`
	ZipCode   string  `json:"zipCode" yaml:"zipCode"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`

	// ScheduledAt is RFC 3339.
	ScheduledAt       *string `json:"scheduledAt,omitempty" yaml:"scheduledAt"`
	EstimatedDuration *int    `json:"estimatedDuration,omitempty" yaml:"estimatedDuration"`
}

// JobPatch is a manual update. Status and TechnicianID go through the state
// machine; ScheduledAt and EstimatedDuration are plain field writes.
type JobPatch struct {
	Status            *models.JobStatus `json:"status,omitempty"`
	TechnicianID      *string           `json:"technicianId,omitempty"`
	ScheduledAt       *string           `json:"scheduledAt,omitempty"`
	EstimatedDuration *int              `json:"estimatedDuration,omitempty"`
}

// Service is the caller-facing surface of the dispatch core. Role checks
// happen in the transports before any method is called.
type Service struct {
	store  Store
	audit  *AuditLog
	sm     *StateMachine
	avail  *Availability
	engine *Engine
	logger *slog.Logger
}

// New wires the dispatch components over store.
func New(store Store, opts ...Option) *Service {
	o := buildOptions(opts)
	audit := NewAuditLog(store, opts...)
	sm := NewStateMachine(store, audit, opts...)
	avail := NewAvailability(store)
	return &Service{
		store:  store,
		audit:  audit,
		sm:     sm,
		avail:  avail,
		engine: NewEngine(store, avail, sm, opts...),
		logger: o.logger,
	}
}

// CreateJob validates in, stores the job with its location as PENDING and logs CREATED.
func (s *Service) CreateJob(ctx context.Context, in NewJob) (*models.Job, error) {
	job, loc, err := in.build()
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateJob(ctx, job, loc)
	if err != nil {
		return nil, persistence("create job", err)
	}
	l, err := s.store.FindLocation(ctx, created.LocationID)
	if err != nil {
		return nil, persistence("find location", err)
	}
	created.Location = l
	if _, err := s.audit.Append(ctx, created.ID, models.ActionCreated, "Job created"); err != nil {
		return created, err
	}
	s.logger.Info("job created", slog.String("job_id", created.ID), slog.String("priority", string(created.Priority)))
	return created, nil
}

func (in NewJob) build() (*models.Job, *models.Location, error) {
	required := []struct{ name, value string }{
		{"title", in.Title},
		{"customerId", in.CustomerID},
		{"customerName", in.CustomerName},
		{"address", in.Address},
		{"city", in.City},
		{"state", in.State},
		{"zipCode", in.ZipCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, nil, invalid("%s is required", f.name)
		}
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, nil, invalid("unknown priority %q", in.Priority)
	}
	if in.CustomerEmail != nil && *in.CustomerEmail != "" {
		if _, err := mail.ParseAddress(*in.CustomerEmail); err != nil {
			return nil, nil, invalid("customerEmail %q is not a valid address", *in.CustomerEmail)
		}
	}
	if !geo.ValidCoordinates(in.Latitude, in.Longitude) {
		return nil, nil, invalid("coordinates (%v, %v) out of range", in.Latitude, in.Longitude)
	}
	scheduled, err := parseTimestamp("scheduledAt", in.ScheduledAt)
	if err != nil {
		return nil, nil, err
	}
	if in.EstimatedDuration != nil && *in.EstimatedDuration <= 0 {
		return nil, nil, invalid("estimatedDuration must be positive")
	}

	job := &models.Job{
		Title:             in.Title,
		Description:       in.Description,
		Priority:          priority,
		CustomerID:        in.CustomerID,
		CustomerName:      in.CustomerName,
		CustomerPhone:     in.CustomerPhone,
		CustomerEmail:     in.CustomerEmail,
		ScheduledAt:       scheduled,
		EstimatedDuration: in.EstimatedDuration,
		Status:            models.JobStatusPending,
	}
	loc := &models.Location{
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		ZipCode:   in.ZipCode,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	return job, loc, nil
}

// GetJob returns the job with its location, technician and dispatch log, newest entry first.
func (s *Service) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.store.FindJob(ctx, id)
	if err != nil {
		return nil, persistence("find job", err)
	}
	if job == nil {
		return nil, notFound("job", id)
	}
	if err := s.decorate(ctx, job, nil); err != nil {
		return nil, err
	}
	logs, err := s.audit.History(ctx, id)
	if err != nil {
		return nil, err
	}
	job.DispatchLogs = make([]models.DispatchLogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		job.DispatchLogs = append(job.DispatchLogs, logs[i])
	}
	return job, nil
}

// ListJobs returns jobs newest first with their location and technician attached.
func (s *Service) ListJobs(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, invalid("unknown status %q", *f.Status)
	}
	if f.Near != nil {
		if !geo.ValidCoordinates(f.Near.Latitude, f.Near.Longitude) || f.Near.RadiusMiles <= 0 {
			return nil, invalid("near filter needs valid coordinates and a positive radius")
		}
	}
	jobs, err := s.store.ListJobs(ctx, f)
	if err != nil {
		return nil, persistence("list jobs", err)
	}
	techs := map[string]*models.User{}
	out := jobs[:0]
	for i := range jobs {
		if err := s.decorate(ctx, &jobs[i], techs); err != nil {
			return nil, err
		}
		if f.Near != nil && !within(jobs[i].Location, f.Near) {
			continue
		}
		out = append(out, jobs[i])
	}
	if out == nil {
		out = []models.Job{}
	}
	return out, nil
}

func within(loc *models.Location, r *models.GeoRadius) bool {
	if loc == nil {
		return false
	}
	return geo.HaversineMiles(r.Latitude, r.Longitude, loc.Latitude, loc.Longitude) <= r.RadiusMiles
}

// decorate attaches location and technician. techs caches technician lookups across calls.
func (s *Service) decorate(ctx context.Context, job *models.Job, techs map[string]*models.User) error {
	loc, err := s.store.FindLocation(ctx, job.LocationID)
	if err != nil {
		return persistence("find location", err)
	}
	job.Location = loc
	id := job.AssignedTo()
	if id == "" {
		return nil
	}
	if t, ok := techs[id]; ok {
		job.Technician = t
		return nil
	}
	t, err := s.store.FindUser(ctx, id)
	if err != nil {
		return persistence("find technician", err)
	}
	if techs != nil {
		techs[id] = t
	}
	job.Technician = t
	return nil
}

// UpdateJobFields applies a manual patch. An empty technicianId is ignored.
// Input is validated before the store is read.
func (s *Service) UpdateJobFields(ctx context.Context, id string, p JobPatch) (*models.Job, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, invalid("unknown status %q", *p.Status)
	}
	scheduled, err := parseTimestamp("scheduledAt", p.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if p.EstimatedDuration != nil && *p.EstimatedDuration <= 0 {
		return nil, invalid("estimatedDuration must be positive")
	}
	if p.TechnicianID != nil && *p.TechnicianID == "" {
		p.TechnicianID = nil
	}

	job, err := s.store.FindJob(ctx, id)
	if err != nil {
		return nil, persistence("find job", err)
	}
	if job == nil {
		return nil, notFound("job", id)
	}

	// One store write carries the field updates and any transition, so a
	// rejected technician or status leaves the job untouched.
	updated, err := s.sm.Transition(ctx, job, Change{
		Status:            p.Status,
		TechnicianID:      p.TechnicianID,
		ScheduledAt:       scheduled,
		EstimatedDuration: p.EstimatedDuration,
	})
	if updated == nil {
		return nil, err
	}
	job = updated
	if err != nil {
		return job, err
	}
	if err := s.decorate(ctx, job, nil); err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteJob removes a job and its location. Its dispatch log is kept.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	ok, err := s.store.DeleteJob(ctx, id)
	if err != nil {
		return persistence("delete job", err)
	}
	if !ok {
		return notFound("job", id)
	}
	s.logger.Info("job deleted", slog.String("job_id", id))
	return nil
}

// DispatchOne assigns one PENDING job to the first available technician.
func (s *Service) DispatchOne(ctx context.Context, jobID string) (*AssignmentResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, invalid("jobId is required")
	}
	return s.engine.DispatchOne(ctx, jobID)
}

// DispatchBatch assigns as many PENDING jobs as there are idle technicians.
func (s *Service) DispatchBatch(ctx context.Context) ([]AssignmentResult, error) {
	return s.engine.DispatchBatch(ctx)
}

// AvailableTechnicians returns the technicians with no active job.
func (s *Service) AvailableTechnicians(ctx context.Context) ([]models.Technician, error) {
	return s.avail.Available(ctx)
}

// ListTechniciansWithLoad returns every technician with their active jobs.
func (s *Service) ListTechniciansWithLoad(ctx context.Context) ([]models.TechnicianLoad, error) {
	techs, err := s.store.ListTechniciansWithLoad(ctx)
	if err != nil {
		return nil, persistence("list technicians", err)
	}
	if techs == nil {
		techs = []models.TechnicianLoad{}
	}
	return techs, nil
}

func parseTimestamp(field string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not an RFC 3339 timestamp", ErrValidation, field, *v)
	}
	t = t.UTC()
	return &t, nil
}
