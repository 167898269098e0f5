package models

import "time"

// Role restricts what a user may do. Technicians are users with RoleTechnician.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleDispatcher Role = "DISPATCHER"
	RoleTechnician Role = "TECHNICIAN"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDispatcher || r == RoleTechnician
}

// User represents an account in the system.
// It maps to the `users` table.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Technician is a user restricted to technician duties.
type Technician = User

// ActiveJob is the slice of a job shown alongside a technician's load.
type ActiveJob struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      JobStatus  `json:"status"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

// TechnicianLoad is a technician together with their ASSIGNED/IN_PROGRESS jobs.
type TechnicianLoad struct {
	Technician
	Jobs []ActiveJob `json:"jobs"`
}
