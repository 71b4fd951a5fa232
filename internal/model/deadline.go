package model

import "time"

// Deadline status constants.
const (
	DeadlineStatusPending   = "pending"
	DeadlineStatusCompleted = "completed"
	DeadlineStatusOverdue   = "overdue"
)

// Deadline is a legal due-date record tracked for a single user.
// Once completed it is never mutated again.
type Deadline struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id" db:"user_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// ProcessNumber identifies the court case this deadline belongs to.
	// Used when refreshing publications from external sources.
	ProcessNumber string `json:"process_number" db:"process_number"`

	DueAt          time.Time  `json:"due_at" db:"due_at"`
	Status         string     `json:"status" db:"status"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
