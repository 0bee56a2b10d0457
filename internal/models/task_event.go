package models

// Task event operations
const (
	TaskEventCreated = "created"
	TaskEventUpdated = "updated"
	TaskEventDeleted = "deleted"
)

// TaskEvent describes a change to a task, published to Kafka.
type TaskEvent struct {
	EventID   string `json:"event_id"`  // EventID is a unique identifier for the event.
	Timestamp int64  `json:"timestamp"` // Timestamp is the Unix timestamp (in seconds) of the change.
	TaskID    int64  `json:"task_id"`   // TaskID is the task that changed.
	UserID    int64  `json:"user_id"`   // UserID is the owner of the task.
	Operation string `json:"operation"` // Operation is one of "created", "updated" or "deleted".
	Status    string `json:"status"`    // Status is the task status after the change.
}
