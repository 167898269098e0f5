package repository

import (
	"context"
	"testing"
	"time"

	"fieldDispatch/internal/db"
	"fieldDispatch/models"
)

func openTestDB(t *testing.T, name string) *db.DB {
	t.Helper()
	d, err := db.Open("sqlite3", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	repo := NewUserRepository(openTestDB(t, "userrepo"))
	ctx := context.Background()

	// Create
	u, err := repo.Create(ctx, &models.User{Name: "Alice", Email: " Alice@Example.com "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" || u.Email != "alice@example.com" || u.Role != models.RoleTechnician {
		t.Fatalf("unexpected created user: %+v", u)
	}

	// GetByID
	g, err := repo.GetByID(ctx, u.ID)
	if err != nil || g == nil || g.Name != "Alice" {
		t.Fatalf("get by id: %v %+v", err, g)
	}

	// GetByEmail
	g2, err := repo.GetByEmail(ctx, "ALICE@example.com")
	if err != nil || g2 == nil || g2.ID != u.ID {
		t.Fatalf("get by email: %v %+v", err, g2)
	}

	// Upsert returns the existing row
	g3, err := repo.Upsert(ctx, &models.User{Name: "Other", Email: "alice@example.com", Role: models.RoleAdmin})
	if err != nil || g3.ID != u.ID || g3.Role != models.RoleTechnician {
		t.Fatalf("upsert existing: %v %+v", err, g3)
	}

	// UpdateRoleByEmail
	if err := repo.UpdateRoleByEmail(ctx, "alice@example.com", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	g4, _ := repo.GetByID(ctx, u.ID)
	if g4.Role != models.RoleAdmin {
		t.Fatalf("role not updated: %+v", g4)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(openTestDB(t, "userdup"))
	ctx := context.Background()
	if _, err := repo.Create(ctx, &models.User{Name: "A", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, &models.User{Name: "B", Email: "A@example.com"}); err == nil {
		t.Fatalf("expected unique email violation")
	}
}

func TestListAvailableTechnicians_ExcludesActive(t *testing.T) {
	d := openTestDB(t, "availability")
	users := NewUserRepository(d)
	jobs := NewJobRepository(d)
	ctx := context.Background()

	var techs []*models.User
	for _, name := range []string{"t1", "t2", "t3"} {
		u, err := users.Create(ctx, &models.User{Name: name, Email: name + "@example.com", Role: models.RoleTechnician})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		techs = append(techs, u)
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := users.Create(ctx, &models.User{Name: "admin", Email: "admin@example.com", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	assigned := models.JobStatusAssigned
	completed := models.JobStatusCompleted
	j1 := createTestJob(t, jobs, "active", time.Time{})
	if _, err := jobs.Update(ctx, j1.ID, models.JobUpdate{Status: &assigned, TechnicianID: &techs[0].ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	j2 := createTestJob(t, jobs, "finished", time.Time{})
	if _, err := jobs.Update(ctx, j2.ID, models.JobUpdate{Status: &completed, TechnicianID: &techs[1].ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	avail, err := users.ListAvailableTechnicians(ctx)
	if err != nil {
		t.Fatalf("ListAvailableTechnicians: %v", err)
	}
	if len(avail) != 2 || avail[0].ID != techs[1].ID || avail[1].ID != techs[2].ID {
		t.Fatalf("available=%+v", avail)
	}
}
