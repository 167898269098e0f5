package models

import "time"

// DispatchAction names the state change recorded by a dispatch log entry.
type DispatchAction string

const (
	ActionCreated    DispatchAction = "CREATED"
	ActionAssigned   DispatchAction = "ASSIGNED"
	ActionReassigned DispatchAction = "REASSIGNED"
	ActionStarted    DispatchAction = "STARTED"
	ActionCompleted  DispatchAction = "COMPLETED"
	ActionCancelled  DispatchAction = "CANCELLED"
)

// Valid reports whether a is one of the six recognized actions.
func (a DispatchAction) Valid() bool {
	switch a {
	case ActionCreated, ActionAssigned, ActionReassigned, ActionStarted, ActionCompleted, ActionCancelled:
		return true
	}
	return false
}

// DispatchLogEntry is an immutable audit record. Entries are only ever inserted.
type DispatchLogEntry struct {
	ID        string         `db:"id" json:"id"`
	JobID     string         `db:"job_id" json:"jobId"`
	Action    DispatchAction `db:"action" json:"action"`
	Details   string         `db:"details" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
