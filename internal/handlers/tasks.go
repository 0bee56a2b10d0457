package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/sbilibin2017/task-tracker/internal/logger"
	"github.com/sbilibin2017/task-tracker/internal/middlewares"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/services"
)

//go:generate mockgen -source=tasks.go -destination=tasks_mock.go -package=handlers

// TaskCreator creates tasks.
type TaskCreator interface {
	Create(ctx context.Context, userID int64, title, description, status string) (*models.TaskDB, error)
}

// TaskLister lists tasks.
type TaskLister interface {
	List(ctx context.Context, userID int64) ([]models.TaskDB, error)
}

// TaskGetter reads a single task.
type TaskGetter interface {
	Get(ctx context.Context, userID, taskID int64) (*models.TaskDB, error)
}

// TaskUpdater updates tasks.
type TaskUpdater interface {
	Update(ctx context.Context, userID, taskID int64, patch models.TaskPatch) (*models.TaskDB, error)
}

// TaskDeleter deletes tasks.
type TaskDeleter interface {
	Delete(ctx context.Context, userID, taskID int64) error
}

// TaskCreateRequest represents the JSON body for task creation
// swagger:model TaskCreateRequest
type TaskCreateRequest struct {
	// required: true
	// default: Write report
	Title string `json:"title"`

	// required: true
	// default: Quarterly numbers
	Description string `json:"description"`

	// pending or completed
	// default: pending
	Status string `json:"status"`
}

// Validate validates the payload.
func (r TaskCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Required),
	)
}

// TaskUpdateRequest represents the JSON body for a partial task update
// swagger:model TaskUpdateRequest
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Validate validates the payload.
func (r TaskUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.NilOrNotEmpty),
	)
}

// TaskResponse represents a task
// swagger:model TaskResponse
type TaskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      int64     `json:"user_id"`
}

func newTaskResponse(t *models.TaskDB) TaskResponse {
	return TaskResponse{
		ID:          t.TaskID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UserID:      t.UserID,
	}
}

// principalID returns the authenticated account id, writing a 401 when there is none.
func principalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	account := middlewares.PrincipalFromContext(r.Context())
	if account == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return 0, false
	}
	return account.UserID, true
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}

func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Status must be 'pending' or 'completed'")
	default:
		logger.Log.Errorw("internal server error", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// NewCreateTaskHandler returns an HTTP handler creating a task for the authenticated account.
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body handlers.TaskCreateRequest true "Task"
// @Success 201 {object} handlers.TaskResponse
// @Failure 400 {object} handlers.ErrorResponse "Invalid payload or status"
// @Failure 401 {object} handlers.ErrorResponse "Could not validate credentials"
// @Security BearerAuth && ApiKeyAuth
// @Router /tasks [post]
func NewCreateTaskHandler(svc TaskCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := principalID(w, r)
		if !ok {
			return
		}

		var req TaskCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "Invalid request", Fields: err})
			return
		}

		task, err := svc.Create(r.Context(), userID, req.Title, req.Description, req.Status)
		if err != nil {
			writeTaskError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newTaskResponse(task))
	}
}

// NewListTasksHandler returns an HTTP handler listing the authenticated account's tasks.
// @Summary List tasks
// @Description Returns the caller's tasks, newest first.
// @Tags tasks
// @Produce json
// @Success 200 {array} handlers.TaskResponse
// @Failure 401 {object} handlers.ErrorResponse "Could not validate credentials"
// @Security BearerAuth && ApiKeyAuth
// @Router /tasks [get]
func NewListTasksHandler(svc TaskLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := principalID(w, r)
		if !ok {
			return
		}

		tasks, err := svc.List(r.Context(), userID)
		if err != nil {
			writeTaskError(w, err)
			return
		}

		resp := make([]TaskResponse, 0, len(tasks))
		for i := range tasks {
			resp = append(resp, newTaskResponse(&tasks[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// NewGetTaskHandler returns an HTTP handler reading one task.
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} handlers.TaskResponse
// @Failure 401 {object} handlers.ErrorResponse "Could not validate credentials"
// @Failure 404 {object} handlers.ErrorResponse "Task not found"
// @Security BearerAuth && ApiKeyAuth
// @Router /tasks/{id} [get]
func NewGetTaskHandler(svc TaskGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := principalID(w, r)
		if !ok {
			return
		}
		taskID, ok := taskIDParam(w, r)
		if !ok {
			return
		}

		task, err := svc.Get(r.Context(), userID, taskID)
		if err != nil {
			writeTaskError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newTaskResponse(task))
	}
}

// NewUpdateTaskHandler returns an HTTP handler updating the provided fields of a task.
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body handlers.TaskUpdateRequest true "Fields to change"
// @Success 200 {object} handlers.TaskResponse
// @Failure 400 {object} handlers.ErrorResponse "Invalid payload or status"
// @Failure 401 {object} handlers.ErrorResponse "Could not validate credentials"
// @Failure 404 {object} handlers.ErrorResponse "Task not found"
// @Security BearerAuth && ApiKeyAuth
// @Router /tasks/{id} [put]
func NewUpdateTaskHandler(svc TaskUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := principalID(w, r)
		if !ok {
			return
		}
		taskID, ok := taskIDParam(w, r)
		if !ok {
			return
		}

		var req TaskUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "Invalid request", Fields: err})
			return
		}

		task, err := svc.Update(r.Context(), userID, taskID, models.TaskPatch{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
		})
		if err != nil {
			writeTaskError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newTaskResponse(task))
	}
}

// NewDeleteTaskHandler returns an HTTP handler deleting a task.
// @Summary Delete a task
// @Tags tasks
// @Param id path int true "Task ID"
// @Success 204
// @Failure 401 {object} handlers.ErrorResponse "Could not validate credentials"
// @Failure 404 {object} handlers.ErrorResponse "Task not found"
// @Security BearerAuth && ApiKeyAuth
// @Router /tasks/{id} [delete]
func NewDeleteTaskHandler(svc TaskDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := principalID(w, r)
		if !ok {
			return
		}
		taskID, ok := taskIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), userID, taskID); err != nil {
			writeTaskError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
