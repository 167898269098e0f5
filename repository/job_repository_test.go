package repository

import (
	"context"
	"testing"
	"time"

	"fieldDispatch/models"
)

func createTestJob(t *testing.T, r *JobRepository, title string, createdAt time.Time) *models.Job {
	t.Helper()
	j, err := r.Create(context.Background(), &models.Job{
		Title:        title,
		CustomerID:   "c-" + title,
		CustomerName: "Customer",
		CreatedAt:    createdAt,
	}, &models.Location{Address: "1 Main", City: "Reno", State: "NV", ZipCode: "89501", Latitude: 39.5, Longitude: -119.8})
	if err != nil {
		t.Fatalf("create job %s: %v", title, err)
	}
	return j
}

func TestJobRepository_CreateGetDelete(t *testing.T) {
	d := openTestDB(t, "jobcrud")
	jobs := NewJobRepository(d)
	logs := NewDispatchLogRepository(d)
	ctx := context.Background()

	dur := 60
	desc := "Replace filter"
	j, err := jobs.Create(ctx, &models.Job{
		Title: "HVAC", Description: &desc, CustomerID: "c1", CustomerName: "Sam", EstimatedDuration: &dur,
	}, &models.Location{Address: "2 Oak", City: "Reno", State: "NV", ZipCode: "89501", Latitude: 39.52, Longitude: -119.81})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Status != models.JobStatusPending || j.Priority != models.PriorityMedium {
		t.Fatalf("defaults: %+v", j)
	}
	if j.Description == nil || *j.Description != desc || j.EstimatedDuration == nil || *j.EstimatedDuration != 60 {
		t.Fatalf("optional fields lost: %+v", j)
	}
	if j.TechnicianID != nil || j.CompletedAt != nil || j.ScheduledAt != nil {
		t.Fatalf("unexpected non-nil fields: %+v", j)
	}

	loc, err := jobs.GetLocation(ctx, j.LocationID)
	if err != nil || loc == nil || loc.City != "Reno" || loc.Latitude != 39.52 {
		t.Fatalf("location: %v %+v", err, loc)
	}

	if err := logs.Append(ctx, &models.DispatchLogEntry{JobID: j.ID, Action: models.ActionCreated, Details: "Job created"}); err != nil {
		t.Fatalf("append log: %v", err)
	}
	ok, err := jobs.Delete(ctx, j.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if got, err := jobs.GetByID(ctx, j.ID); err != nil || got != nil {
		t.Fatalf("job survived delete: %+v %v", got, err)
	}
	if loc, _ := jobs.GetLocation(ctx, j.LocationID); loc != nil {
		t.Fatalf("location survived delete")
	}
	if entries, _ := logs.ListByJob(ctx, j.ID); len(entries) != 1 {
		t.Fatalf("log entries=%d want 1", len(entries))
	}
	if ok, err := jobs.Delete(ctx, j.ID); err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
}

func TestJobRepository_ListOrderAndFilters(t *testing.T) {
	d := openTestDB(t, "joblist")
	jobs := NewJobRepository(d)
	users := NewUserRepository(d)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	oldest := createTestJob(t, jobs, "oldest", t0)
	newest := createTestJob(t, jobs, "newest", t0.Add(2*time.Hour))
	middle := createTestJob(t, jobs, "middle", t0.Add(time.Hour))

	all, err := jobs.List(ctx, models.JobFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != newest.ID || all[1].ID != middle.ID || all[2].ID != oldest.ID {
		t.Fatalf("order wrong: %v", []string{all[0].Title, all[1].Title, all[2].Title})
	}

	tech, err := users.Create(ctx, &models.User{Name: "T", Email: "t@example.com", Role: models.RoleTechnician})
	if err != nil {
		t.Fatalf("create tech: %v", err)
	}
	status := models.JobStatusInProgress
	if _, err := jobs.Update(ctx, middle.ID, models.JobUpdate{Status: &status, TechnicianID: &tech.ID}); err != nil {
		t.Fatalf("update: %v", err)
	}
	filtered, err := jobs.List(ctx, models.JobFilter{Status: &status, TechnicianID: &tech.ID})
	if err != nil || len(filtered) != 1 || filtered[0].ID != middle.ID {
		t.Fatalf("filtered: %v %+v", err, filtered)
	}

	active, err := jobs.ListActiveByTechnicians(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active[tech.ID]) != 1 || active[tech.ID][0].Status != models.JobStatusInProgress {
		t.Fatalf("active=%+v", active)
	}
}

func TestJobRepository_GuardedUpdate(t *testing.T) {
	d := openTestDB(t, "jobguard")
	jobs := NewJobRepository(d)
	users := NewUserRepository(d)
	ctx := context.Background()
	tech, err := users.Create(ctx, &models.User{Name: "G", Email: "g@example.com", Role: models.RoleTechnician})
	if err != nil {
		t.Fatalf("create tech: %v", err)
	}
	first := createTestJob(t, jobs, "first", time.Time{})
	second := createTestJob(t, jobs, "second", time.Time{})

	pending := models.JobStatusPending
	assigned := models.JobStatusAssigned
	guarded := models.JobUpdate{Status: &assigned, TechnicianID: &tech.ID, RequireStatus: &pending, RequireTechnicianIdle: true}

	got, err := jobs.Update(ctx, first.ID, guarded)
	if err != nil || got == nil || got.Status != models.JobStatusAssigned {
		t.Fatalf("first guarded update: %v %+v", err, got)
	}
	// Technician now holds an active job.
	got, err = jobs.Update(ctx, second.ID, guarded)
	if err != nil || got != nil {
		t.Fatalf("idle guard not enforced: %v %+v", err, got)
	}
	if still, _ := jobs.GetByID(ctx, second.ID); still.Status != models.JobStatusPending || still.TechnicianID != nil {
		t.Fatalf("rejected update wrote: %+v", still)
	}
	// Job is no longer PENDING.
	got, err = jobs.Update(ctx, first.ID, models.JobUpdate{Status: &assigned, TechnicianID: &tech.ID, RequireStatus: &pending})
	if err != nil || got != nil {
		t.Fatalf("status guard not enforced: %v %+v", err, got)
	}
	// Missing job.
	if got, err := jobs.Update(ctx, "missing", models.JobUpdate{Status: &pending}); err != nil || got != nil {
		t.Fatalf("missing job: %v %+v", err, got)
	}
}

func TestJobRepository_CompletedAtAndClear(t *testing.T) {
	d := openTestDB(t, "jobcompleted")
	jobs := NewJobRepository(d)
	ctx := context.Background()
	j := createTestJob(t, jobs, "done", time.Time{})

	at := time.Date(2024, 4, 4, 4, 4, 4, 123456789, time.UTC)
	completed := models.JobStatusCompleted
	got, err := jobs.Update(ctx, j.ID, models.JobUpdate{Status: &completed, CompletedAt: &at})
	if err != nil || got.CompletedAt == nil || !got.CompletedAt.Equal(at) {
		t.Fatalf("completedAt round-trip: %v %+v", err, got)
	}
	pending := models.JobStatusPending
	got, err = jobs.Update(ctx, j.ID, models.JobUpdate{Status: &pending, ClearCompletedAt: true})
	if err != nil || got.CompletedAt != nil {
		t.Fatalf("clear completedAt: %v %+v", err, got)
	}
}

func TestDispatchLogRepository_Order(t *testing.T) {
	logs := NewDispatchLogRepository(openTestDB(t, "logorder"))
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	entries := []models.DispatchLogEntry{
		{JobID: "j", Action: models.ActionStarted, CreatedAt: t0.Add(2 * time.Minute)},
		{JobID: "j", Action: models.ActionCreated, CreatedAt: t0},
		{JobID: "j", Action: models.ActionAssigned, CreatedAt: t0.Add(time.Minute)},
		{JobID: "other", Action: models.ActionCreated, CreatedAt: t0},
	}
	for i := range entries {
		if err := logs.Append(ctx, &entries[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
		if entries[i].ID == "" {
			t.Fatalf("id not assigned")
		}
	}
	got, err := logs.ListByJob(ctx, "j")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Action != models.ActionCreated || got[1].Action != models.ActionAssigned || got[2].Action != models.ActionStarted {
		t.Fatalf("order=%+v", got)
	}
}
