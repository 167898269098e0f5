package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldDispatch/internal/testutil"
	"fieldDispatch/models"
	"fieldDispatch/repository"
)

var _ Store = (*repository.Store)(nil)

func newTestStore(t *testing.T, name string) *repository.Store {
	t.Helper()
	return repository.NewStore(testutil.OpenInMemoryDB(t, name))
}

func seedUser(t *testing.T, s *repository.Store, name string, role models.Role) *models.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), &models.User{Name: name, Email: name + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	// Keep created_at strictly increasing so resolver order follows seed order.
	time.Sleep(2 * time.Millisecond)
	return u
}

func seedJob(t *testing.T, s *repository.Store, title string, p models.Priority, createdAt time.Time) *models.Job {
	t.Helper()
	j, err := s.CreateJob(context.Background(), &models.Job{
		Title:        title,
		Priority:     p,
		CustomerID:   "cust-" + title,
		CustomerName: "Customer " + title,
		CreatedAt:    createdAt,
	}, &models.Location{Address: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701", Latitude: 30.27, Longitude: -97.74})
	if err != nil {
		t.Fatalf("create job %s: %v", title, err)
	}
	return j
}

func mustLogs(t *testing.T, s *repository.Store, jobID string) []models.DispatchLogEntry {
	t.Helper()
	logs, err := s.ListDispatchLogs(context.Background(), jobID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return logs
}

func mustJob(t *testing.T, s *repository.Store, id string) *models.Job {
	t.Helper()
	j, err := s.FindJob(context.Background(), id)
	if err != nil || j == nil {
		t.Fatalf("find job %s: %v (nil=%v)", id, err, j == nil)
	}
	return j
}

func ptr[T any](v T) *T { return &v }

// failingLogStore accepts job writes but cannot append dispatch log entries.
type failingLogStore struct {
	*repository.Store
}

var errLogDown = errors.New("log table unavailable")

func (failingLogStore) AppendDispatchLog(context.Context, *models.DispatchLogEntry) error {
	return errLogDown
}

// staleAvailabilityStore reports a fixed technician list regardless of their load,
// as a resolver read that raced with another assignment would.
type staleAvailabilityStore struct {
	*repository.Store
	techs []models.Technician
}

func (s staleAvailabilityStore) ListAvailableTechnicians(context.Context) ([]models.Technician, error) {
	return s.techs, nil
}

// brokenLocationStore writes jobs but cannot read locations back.
type brokenLocationStore struct {
	*repository.Store
}

var errLocationRead = errors.New("locations unreadable")

func (brokenLocationStore) FindLocation(context.Context, string) (*models.Location, error) {
	return nil, errLocationRead
}
