package models

import "time"

// TaskType distinguishes how a task surfaces to members.
type TaskType string

const (
	TypeTask     TaskType = "TASK"
	TypeReminder TaskType = "REMINDER"
	TypeUpdate   TaskType = "UPDATE"
)

// TaskPriority orders tasks within a list.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityNormal TaskPriority = "Normal"
	PriorityHigh   TaskPriority = "High"
)

// TaskStatus is the two-state completion flag.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// OwnershipScope controls which member may act on a task. An empty or
// unrecognized scope is treated as SHARED by the permission engine.
type OwnershipScope string

const (
	ScopeIndividual OwnershipScope = "INDIVIDUAL"
	ScopeShared     OwnershipScope = "SHARED"
	ScopeAssigned   OwnershipScope = "ASSIGNED"
)

// Task represents a single entry in a space's task list
type Task struct {
	ID                 string         `json:"id" db:"id"`
	CreatorID          string         `json:"creatorId" db:"creator_id"`
	SpaceID            string         `json:"spaceId" db:"space_id"`
	Title              string         `json:"title" db:"title"`
	Description        string         `json:"description,omitempty" db:"description"`
	DueDate            *time.Time     `json:"dueDate,omitempty" db:"due_date"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
	Type               TaskType       `json:"type" db:"type"`
	Priority           TaskPriority   `json:"priority" db:"priority"`
	Status             TaskStatus     `json:"status" db:"status"`
	Scope              OwnershipScope `json:"scope" db:"scope"`
	Effort             int            `json:"effort" db:"effort"`
	ProgressPercentage int            `json:"progressPercentage" db:"progress_percentage"`
}

// IsCompleted reports the completion flag. Progress percentage is tracked
// independently; the two are cross-wired by callers, not here.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}
