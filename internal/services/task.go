package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/segmentio/kafka-go"
)

//go:generate mockgen -source=task.go -destination=task_mock.go -package=services

var (
	// ErrTaskNotFound is returned when the task does not exist or belongs to another account.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidStatus is returned for statuses other than pending and completed.
	ErrInvalidStatus = errors.New("status must be 'pending' or 'completed'")
)

// TaskWriter defines methods for writing tasks.
type TaskWriter interface {
	Save(ctx context.Context, userID int64, title, description, status string) (*models.TaskDB, error)
	Update(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (*models.TaskDB, error)
	Delete(ctx context.Context, userID, taskID int64) (bool, error)
}

// TaskReader defines methods for reading tasks.
type TaskReader interface {
	ListByUserID(ctx context.Context, userID int64) ([]models.TaskDB, error)
	GetByID(ctx context.Context, userID, taskID int64) (*models.TaskDB, error)
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// TaskService handles task operations for an authenticated account and publishes task events.
type TaskService struct {
	writeRepo   TaskWriter
	readRepo    TaskReader
	kafkaWriter KafkaWriter
	afterCommit func(ctx context.Context, fn func())
}

// NewTaskService creates a new TaskService. kafkaWriter may be nil to disable publishing.
//
// afterCommit schedules publishing once the write is durable; it receives the
// request context and the publish function. A nil afterCommit publishes right
// after the repository call returns.
func NewTaskService(
	writeRepo TaskWriter,
	readRepo TaskReader,
	kafkaWriter KafkaWriter,
	afterCommit func(ctx context.Context, fn func()),
) *TaskService {
	if afterCommit == nil {
		afterCommit = func(_ context.Context, fn func()) { fn() }
	}
	return &TaskService{
		writeRepo:   writeRepo,
		readRepo:    readRepo,
		kafkaWriter: kafkaWriter,
		afterCommit: afterCommit,
	}
}

func validStatus(status string) bool {
	return slices.Contains(models.TaskStatuses, status)
}

// publishEvent schedules a task event for Kafka via afterCommit. Failures are logged only.
func (s *TaskService) publishEvent(ctx context.Context, task *models.TaskDB, operation string) {
	event := models.TaskEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().Unix(),
		TaskID:    task.TaskID,
		UserID:    task.UserID,
		Operation: operation,
		Status:    task.Status,
	}

	if s.kafkaWriter == nil {
		logger.Log.Debugw("Kafka writer not configured, skipping publishing", "event_id", event.EventID)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal task event", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.TaskID, 10)),
		Value: data,
	}

	s.afterCommit(ctx, func() {
		if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
			logger.Log.Errorw("Failed to publish task event", "event_id", event.EventID, "error", err)
			return
		}
		logger.Log.Infow("Task event published", "event_id", event.EventID, "task_id", event.TaskID, "operation", operation)
	})
}

// Create adds a task for userID. An empty status defaults to pending.
func (s *TaskService) Create(ctx context.Context, userID int64, title, description, status string) (*models.TaskDB, error) {
	if status == "" {
		status = models.TaskStatusPending
	}
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	task, err := s.writeRepo.Save(ctx, userID, title, description, status)
	if err != nil {
		logger.Log.Errorw("failed to save task", "userID", userID, "error", err)
		return nil, err
	}

	s.publishEvent(ctx, task, models.TaskEventCreated)
	return task, nil
}

// List returns the user's tasks, newest first.
func (s *TaskService) List(ctx context.Context, userID int64) ([]models.TaskDB, error) {
	tasks, err := s.readRepo.ListByUserID(ctx, userID)
	if err != nil {
		logger.Log.Errorw("failed to list tasks", "userID", userID, "error", err)
		return nil, err
	}
	return tasks, nil
}

// Get returns one of the user's tasks.
func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (*models.TaskDB, error) {
	task, err := s.readRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		logger.Log.Errorw("failed to get task", "userID", userID, "taskID", taskID, "error", err)
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Update changes the provided fields of one of the user's tasks.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (*models.TaskDB, error) {
	if patch.Status != nil && !validStatus(*patch.Status) {
		return nil, ErrInvalidStatus
	}

	task, err := s.writeRepo.Update(ctx, userID, taskID, patch)
	if err != nil {
		logger.Log.Errorw("failed to update task", "userID", userID, "taskID", taskID, "error", err)
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	s.publishEvent(ctx, task, models.TaskEventUpdated)
	return task, nil
}

// Delete removes one of the user's tasks.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	deleted, err := s.writeRepo.Delete(ctx, userID, taskID)
	if err != nil {
		logger.Log.Errorw("failed to delete task", "userID", userID, "taskID", taskID, "error", err)
		return err
	}
	if !deleted {
		return ErrTaskNotFound
	}

	s.publishEvent(ctx, &models.TaskDB{TaskID: taskID, UserID: userID}, models.TaskEventDeleted)
	return nil
}
