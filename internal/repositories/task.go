package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/models"
)

const taskColumns = `id, user_id, title, description, status, created_at`

// TaskWriteRepository handles task write operations
type TaskWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTaskWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TaskWriteRepository {
	return &TaskWriteRepository{db: db, txGetter: txGetter}
}

// executor prefers the request transaction when one is present.
func (r *TaskWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Save inserts a task owned by userID.
func (r *TaskWriteRepository) Save(ctx context.Context, userID int64, title, description, status string) (*models.TaskDB, error) {
	const query = `
		INSERT INTO tasks (user_id, title, description, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + taskColumns

	args := []any{userID, title, description, status}

	var task models.TaskDB
	err := sqlx.GetContext(ctx, r.executor(ctx), &task, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", task.TaskID,
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies patch to the task. Returns (nil, nil) if userID owns no such task.
func (r *TaskWriteRepository) Update(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (*models.TaskDB, error) {
	const query = `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    status = COALESCE($5, status)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	args := []any{taskID, userID, patch.Title, patch.Description, patch.Status}

	var task models.TaskDB
	err := sqlx.GetContext(ctx, r.executor(ctx), &task, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{taskID, userID},
		"result", task.TaskID,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes the task and reports whether it existed for userID.
func (r *TaskWriteRepository) Delete(ctx context.Context, userID, taskID int64) (bool, error) {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	args := []any{taskID, userID}

	res, err := r.executor(ctx).ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", query,
		"args", args,
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// TaskReadRepository handles task read operations
type TaskReadRepository struct {
	db *sqlx.DB
}

func NewTaskReadRepository(db *sqlx.DB) *TaskReadRepository {
	return &TaskReadRepository{db: db}
}

// ListByUserID returns the user's tasks, newest first.
func (r *TaskReadRepository) ListByUserID(ctx context.Context, userID int64) ([]models.TaskDB, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	tasks := []models.TaskDB{}
	err := r.db.SelectContext(ctx, &tasks, query, userID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{userID},
		"result", len(tasks),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetByID returns the task if it belongs to userID, or (nil, nil) otherwise.
func (r *TaskReadRepository) GetByID(ctx context.Context, userID, taskID int64) (*models.TaskDB, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	var task models.TaskDB
	err := r.db.GetContext(ctx, &task, query, taskID, userID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{taskID, userID},
		"result", task.TaskID,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}
