package models

import "time"

// Task statuses
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// TaskStatuses lists every accepted task status.
var TaskStatuses = []string{TaskStatusPending, TaskStatusCompleted}

// TaskDB represents a task row in the database
type TaskDB struct {
	TaskID      int64     `json:"id" db:"id"`                   // Primary key
	UserID      int64     `json:"user_id" db:"user_id"`         // Owner account
	Title       string    `json:"title" db:"title"`             // Short title
	Description string    `json:"description" db:"description"` // Free-form description
	Status      string    `json:"status" db:"status"`           // pending or completed
	CreatedAt   time.Time `json:"created_at" db:"created_at"`   // Creation timestamp
}

// TaskPatch holds the optional fields of a task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}
