package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fieldDispatch/models"
)

func TestDispatchOne_AssignsFirstAvailable(t *testing.T) {
	s := newTestStore(t, "eng_one")
	svc := New(s)
	ctx := context.Background()
	first := seedUser(t, s, "alice", models.RoleTechnician)
	seedUser(t, s, "bob", models.RoleTechnician)
	job := seedJob(t, s, "leak", models.PriorityHigh, time.Time{})

	res, err := svc.DispatchOne(ctx, job.ID)
	if err != nil {
		t.Fatalf("DispatchOne: %v", err)
	}
	if res.Technician.ID != first.ID {
		t.Fatalf("technician=%s want first available %s", res.Technician.Name, first.Name)
	}
	if res.Job.Status != models.JobStatusAssigned || res.Job.AssignedTo() != first.ID {
		t.Fatalf("job not assigned: %+v", res.Job)
	}

	logs := mustLogs(t, s, job.ID)
	if len(logs) != 1 || logs[0].Action != models.ActionAssigned {
		t.Fatalf("expected one ASSIGNED entry, got %+v", logs)
	}
	if logs[0].Details != "Auto-assigned to alice using basic dispatch algorithm" {
		t.Fatalf("details=%q", logs[0].Details)
	}

	avail, err := svc.AvailableTechnicians(ctx)
	if err != nil {
		t.Fatalf("AvailableTechnicians: %v", err)
	}
	for _, tech := range avail {
		if tech.ID == first.ID {
			t.Fatalf("assigned technician still reported available")
		}
	}
	if len(avail) != 1 {
		t.Fatalf("available=%d want 1", len(avail))
	}
}

func TestDispatchOne_NoCapacityLeavesJobUntouched(t *testing.T) {
	s := newTestStore(t, "eng_nocap")
	svc := New(s)
	job := seedJob(t, s, "idle", models.PriorityUrgent, time.Time{})

	_, err := svc.DispatchOne(context.Background(), job.ID)
	if !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("err=%v want ErrNoCapacity", err)
	}
	got := mustJob(t, s, job.ID)
	if got.Status != models.JobStatusPending || got.TechnicianID != nil {
		t.Fatalf("job changed: %+v", got)
	}
	if logs := mustLogs(t, s, job.ID); len(logs) != 0 {
		t.Fatalf("log changed: %+v", logs)
	}
}

func TestDispatchOne_CompletedJobIsInvalidState(t *testing.T) {
	s := newTestStore(t, "eng_invalid")
	svc := New(s)
	ctx := context.Background()
	seedUser(t, s, "carl", models.RoleTechnician)
	job := seedJob(t, s, "done", models.PriorityLow, time.Time{})
	if _, err := s.UpdateJob(ctx, job.ID, models.JobUpdate{Status: ptr(models.JobStatusCompleted)}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := svc.DispatchOne(ctx, job.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err=%v want ErrInvalidState", err)
	}
	if _, err := svc.DispatchOne(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if _, err := svc.DispatchOne(ctx, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v want ErrValidation", err)
	}
}

func TestDispatchOne_SkipsTechnicianTakenSinceResolve(t *testing.T) {
	s := newTestStore(t, "eng_race")
	ctx := context.Background()
	busy := seedUser(t, s, "busy", models.RoleTechnician)
	free := seedUser(t, s, "free", models.RoleTechnician)
	other := seedJob(t, s, "other", models.PriorityLow, time.Time{})
	if _, err := s.UpdateJob(ctx, other.ID, models.JobUpdate{Status: ptr(models.JobStatusAssigned), TechnicianID: &busy.ID}); err != nil {
		t.Fatalf("occupy busy: %v", err)
	}
	job := seedJob(t, s, "contested", models.PriorityHigh, time.Time{})

	svc := New(staleAvailabilityStore{Store: s, techs: []models.Technician{*busy, *free}})
	res, err := svc.DispatchOne(ctx, job.ID)
	if err != nil {
		t.Fatalf("DispatchOne: %v", err)
	}
	if res.Technician.ID != free.ID {
		t.Fatalf("assigned to %s, want %s", res.Technician.Name, free.Name)
	}
	if logs := mustLogs(t, s, job.ID); len(logs) != 1 {
		t.Fatalf("expected one entry, got %d", len(logs))
	}
}

func TestDispatchOne_StaleOnlyCandidateIsNoCapacity(t *testing.T) {
	s := newTestStore(t, "eng_race_nocap")
	ctx := context.Background()
	busy := seedUser(t, s, "busy", models.RoleTechnician)
	other := seedJob(t, s, "other", models.PriorityLow, time.Time{})
	if _, err := s.UpdateJob(ctx, other.ID, models.JobUpdate{Status: ptr(models.JobStatusInProgress), TechnicianID: &busy.ID}); err != nil {
		t.Fatalf("occupy busy: %v", err)
	}
	job := seedJob(t, s, "contested", models.PriorityHigh, time.Time{})

	svc := New(staleAvailabilityStore{Store: s, techs: []models.Technician{*busy}})
	if _, err := svc.DispatchOne(ctx, job.ID); !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("err=%v want ErrNoCapacity", err)
	}
	if got := mustJob(t, s, job.ID); got.Status != models.JobStatusPending {
		t.Fatalf("status=%s want PENDING", got.Status)
	}
}

func TestDispatchBatch_PriorityBeatsAge(t *testing.T) {
	s := newTestStore(t, "eng_batch_scenario")
	svc := New(s)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	x := seedUser(t, s, "xander", models.RoleTechnician)
	a := seedJob(t, s, "A", models.PriorityUrgent, t0)
	b := seedJob(t, s, "B", models.PriorityLow, t0.Add(-time.Hour))

	res, err := svc.DispatchBatch(context.Background())
	if err != nil {
		t.Fatalf("DispatchBatch: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("assignments=%d want 1", len(res))
	}
	if res[0].Job.ID != a.ID || res[0].Technician.ID != x.ID {
		t.Fatalf("got %s -> %s, want A -> xander", res[0].Job.Title, res[0].Technician.Name)
	}
	if got := mustJob(t, s, b.ID); got.Status != models.JobStatusPending {
		t.Fatalf("B status=%s want PENDING", got.Status)
	}
	logs := mustLogs(t, s, a.ID)
	if len(logs) != 1 || logs[0].Action != models.ActionAssigned || logs[0].Details != "Batch assigned to xander" {
		t.Fatalf("A logs=%+v", logs)
	}
}

func TestDispatchBatch_AssignsOrderedPrefix(t *testing.T) {
	s := newTestStore(t, "eng_batch_prefix")
	svc := New(s)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	techs := []*models.User{
		seedUser(t, s, "t1", models.RoleTechnician),
		seedUser(t, s, "t2", models.RoleTechnician),
		seedUser(t, s, "t3", models.RoleTechnician),
	}
	seedJob(t, s, "low-old", models.PriorityLow, t0)
	seedJob(t, s, "high-new", models.PriorityHigh, t0.Add(3*time.Hour))
	seedJob(t, s, "urgent", models.PriorityUrgent, t0.Add(4*time.Hour))
	seedJob(t, s, "high-old", models.PriorityHigh, t0.Add(time.Hour))
	seedJob(t, s, "medium", models.PriorityMedium, t0.Add(2*time.Hour))

	res, err := svc.DispatchBatch(ctx)
	if err != nil {
		t.Fatalf("DispatchBatch: %v", err)
	}
	wantJobs := []string{"urgent", "high-old", "high-new"}
	if len(res) != len(wantJobs) {
		t.Fatalf("assignments=%d want %d", len(res), len(wantJobs))
	}
	for i, r := range res {
		if r.Job.Title != wantJobs[i] {
			t.Errorf("assignment %d: job=%s want %s", i, r.Job.Title, wantJobs[i])
		}
		if r.Technician.ID != techs[i].ID {
			t.Errorf("assignment %d: technician=%s want %s", i, r.Technician.Name, techs[i].Name)
		}
	}

	pending, err := svc.ListJobs(ctx, models.JobFilter{Status: ptr(models.JobStatusPending)})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending=%d want 2", len(pending))
	}
	avail, _ := svc.AvailableTechnicians(ctx)
	if len(avail) != 0 {
		t.Fatalf("available after batch=%d want 0", len(avail))
	}
}

func TestDispatchBatch_EmptyInputs(t *testing.T) {
	s := newTestStore(t, "eng_batch_empty")
	svc := New(s)
	ctx := context.Background()

	res, err := svc.DispatchBatch(ctx)
	if err != nil || res == nil || len(res) != 0 {
		t.Fatalf("no jobs: res=%v err=%v", res, err)
	}
	seedJob(t, s, "lonely", models.PriorityMedium, time.Time{})
	res, err = svc.DispatchBatch(ctx)
	if err != nil || len(res) != 0 {
		t.Fatalf("no technicians: res=%v err=%v", res, err)
	}
}

func TestDispatchBatch_StaleTechnicianIsSkipped(t *testing.T) {
	s := newTestStore(t, "eng_batch_race")
	ctx := context.Background()
	busy := seedUser(t, s, "busy", models.RoleTechnician)
	free := seedUser(t, s, "free", models.RoleTechnician)
	other := seedJob(t, s, "other", models.PriorityLow, time.Time{})
	if _, err := s.UpdateJob(ctx, other.ID, models.JobUpdate{Status: ptr(models.JobStatusAssigned), TechnicianID: &busy.ID}); err != nil {
		t.Fatalf("occupy busy: %v", err)
	}
	job := seedJob(t, s, "next", models.PriorityHigh, time.Time{})

	svc := New(staleAvailabilityStore{Store: s, techs: []models.Technician{*busy, *free}})
	res, err := svc.DispatchBatch(ctx)
	if err != nil {
		t.Fatalf("DispatchBatch: %v", err)
	}
	if len(res) != 1 || res[0].Job.ID != job.ID || res[0].Technician.ID != free.ID {
		t.Fatalf("unexpected batch result: %+v", res)
	}
}

func TestWithSelector_ReplacesPolicy(t *testing.T) {
	s := newTestStore(t, "eng_selector")
	ctx := context.Background()
	seedUser(t, s, "first", models.RoleTechnician)
	last := seedUser(t, s, "last", models.RoleTechnician)
	job := seedJob(t, s, "pick-last", models.PriorityMedium, time.Time{})

	pickLast := SelectorFunc(func(c []models.Technician, _ *models.Job) (models.Technician, bool) {
		if len(c) == 0 {
			return models.Technician{}, false
		}
		return c[len(c)-1], true
	})
	res, err := New(s, WithSelector(pickLast)).DispatchOne(ctx, job.ID)
	if err != nil {
		t.Fatalf("DispatchOne: %v", err)
	}
	if res.Technician.ID != last.ID {
		t.Fatalf("technician=%s want last", res.Technician.Name)
	}
}

func TestSortForDispatch(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jobs := []models.Job{
		{ID: "c", Priority: models.PriorityMedium, CreatedAt: t0},
		{ID: "b", Priority: models.PriorityUrgent, CreatedAt: t0.Add(time.Minute)},
		{ID: "a", Priority: models.PriorityMedium, CreatedAt: t0},
		{ID: "d", Priority: models.PriorityLow, CreatedAt: t0.Add(-time.Hour)},
		{ID: "e", Priority: models.PriorityUrgent, CreatedAt: t0},
	}
	SortForDispatch(jobs)
	var got []string
	for _, j := range jobs {
		got = append(got, j.ID)
	}
	if strings.Join(got, ",") != "e,b,a,c,d" {
		t.Fatalf("order=%v", got)
	}
}
