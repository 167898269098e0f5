package models

import "time"

// JobStatus represents where a job is in its dispatch lifecycle.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusAssigned   JobStatus = "ASSIGNED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// Valid reports whether s is one of the five recognized statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusAssigned, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// Active reports whether a job in this status counts against technician availability.
func (s JobStatus) Active() bool {
	return s == JobStatusAssigned || s == JobStatusInProgress
}

// Terminal reports whether s ends a job's lifecycle. Moving a job out of a
// terminal status is allowed but logged as a reopen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// ActiveStatuses are the statuses that make a technician unavailable.
var ActiveStatuses = []JobStatus{JobStatusAssigned, JobStatusInProgress}

// Priority ranks pending jobs for batch dispatch.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank orders priorities; higher is dispatched first. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Valid reports whether p is one of the four recognized priorities.
func (p Priority) Valid() bool { return p.Rank() > 0 }

// Job is a unit of field-service work.
// TechnicianID points at the current assignee; it is never cleared by a status change.
type Job struct {
	ID                string     `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Description       *string    `db:"description" json:"description,omitempty"`
	Priority          Priority   `db:"priority" json:"priority"`
	CustomerID        string     `db:"customer_id" json:"customerId"`
	CustomerName      string     `db:"customer_name" json:"customerName"`
	CustomerPhone     *string    `db:"customer_phone" json:"customerPhone,omitempty"`
	CustomerEmail     *string    `db:"customer_email" json:"customerEmail,omitempty"`
	LocationID        string     `db:"location_id" json:"locationId"`
	ScheduledAt       *time.Time `db:"scheduled_at" json:"scheduledAt,omitempty"`
	EstimatedDuration *int       `db:"estimated_duration" json:"estimatedDuration,omitempty"`
	Status            JobStatus  `db:"status" json:"status"`
	TechnicianID      *string    `db:"technician_id" json:"technicianId,omitempty"`
	CompletedAt       *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`

	// Populated by detail reads only.
	Location     *Location          `json:"location,omitempty"`
	Technician   *User              `json:"technician,omitempty"`
	DispatchLogs []DispatchLogEntry `json:"dispatchLogs,omitempty"`
}

// AssignedTo returns the current technician id, or "" when unassigned.
func (j *Job) AssignedTo() string {
	if j == nil || j.TechnicianID == nil {
		return ""
	}
	return *j.TechnicianID
}

// JobUpdate is a partial update; nil fields are left untouched.
//
// RequireStatus and RequireTechnicianIdle are write guards: when set, the
// update only applies if the stored job still has that status and the new
// technician holds no active job. A guarded update that does not apply
// writes nothing.
type JobUpdate struct {
	Status            *JobStatus
	TechnicianID      *string
	CompletedAt       *time.Time
	ClearCompletedAt  bool
	ScheduledAt       *time.Time
	EstimatedDuration *int

	RequireStatus         *JobStatus
	RequireTechnicianIdle bool
}

// Empty reports whether the update would change no field.
func (u JobUpdate) Empty() bool {
	return u.Status == nil && u.TechnicianID == nil && u.CompletedAt == nil && !u.ClearCompletedAt &&
		u.ScheduledAt == nil && u.EstimatedDuration == nil
}

// JobFilter narrows job listings.
type JobFilter struct {
	Status       *JobStatus
	TechnicianID *string
	// Near keeps only jobs whose location lies within the radius. Applied after the store query.
	Near *GeoRadius
}

// GeoRadius is a circle on the map.
type GeoRadius struct {
	Latitude    float64
	Longitude   float64
	RadiusMiles float64
}
