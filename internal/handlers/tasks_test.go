package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/task-tracker/internal/middlewares"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/services"
	"github.com/stretchr/testify/assert"
)

var testPrincipal = &models.AccountDB{UserID: 7, Username: "alice"}

func serveTask(method, pattern, target, body string, h http.HandlerFunc, authenticated bool) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if authenticated {
		req = req.WithContext(middlewares.WithPrincipal(req.Context(), testPrincipal))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestCreateTaskHandler(t *testing.T) {
	created := &models.TaskDB{
		TaskID: 3, UserID: 7, Title: "Write report", Description: "Q3", Status: "pending",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("created", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskCreator(ctrl)
		m.EXPECT().Create(gomock.Any(), int64(7), "Write report", "Q3", "").Return(created, nil)

		rr := serveTask(http.MethodPost, "/tasks", "/tasks", `{"title":"Write report","description":"Q3"}`, NewCreateTaskHandler(m), true)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp TaskResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, newTaskResponse(created), resp)
	})

	t.Run("invalid status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskCreator(ctrl)
		m.EXPECT().Create(gomock.Any(), int64(7), "t", "d", "archived").Return(nil, services.ErrInvalidStatus)

		rr := serveTask(http.MethodPost, "/tasks", "/tasks", `{"title":"t","description":"d","status":"archived"}`, NewCreateTaskHandler(m), true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Status must be 'pending' or 'completed'", decodeError(t, rr))
	})

	t.Run("missing title", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rr := serveTask(http.MethodPost, "/tasks", "/tasks", `{"description":"d"}`, NewCreateTaskHandler(NewMockTaskCreator(ctrl)), true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid request", decodeError(t, rr))
	})

	t.Run("invalid json", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rr := serveTask(http.MethodPost, "/tasks", "/tasks", `{`, NewCreateTaskHandler(NewMockTaskCreator(ctrl)), true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, rr))
	})

	t.Run("no principal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rr := serveTask(http.MethodPost, "/tasks", "/tasks", `{"title":"t","description":"d"}`, NewCreateTaskHandler(NewMockTaskCreator(ctrl)), false)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	})
}

func TestListTasksHandler(t *testing.T) {
	t.Run("returns tasks", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskLister(ctrl)
		m.EXPECT().List(gomock.Any(), int64(7)).Return([]models.TaskDB{{TaskID: 2, UserID: 7}, {TaskID: 1, UserID: 7}}, nil)

		rr := serveTask(http.MethodGet, "/tasks", "/tasks", "", NewListTasksHandler(m), true)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp []TaskResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Len(t, resp, 2)
		assert.Equal(t, int64(2), resp[0].ID)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskLister(ctrl)
		m.EXPECT().List(gomock.Any(), int64(7)).Return([]models.TaskDB{}, nil)

		rr := serveTask(http.MethodGet, "/tasks", "/tasks", "", NewListTasksHandler(m), true)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("internal error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskLister(ctrl)
		m.EXPECT().List(gomock.Any(), int64(7)).Return(nil, errors.New("db down"))

		rr := serveTask(http.MethodGet, "/tasks", "/tasks", "", NewListTasksHandler(m), true)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Internal server error", decodeError(t, rr))
	})
}

func TestGetTaskHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskGetter(ctrl)
		m.EXPECT().Get(gomock.Any(), int64(7), int64(3)).Return(&models.TaskDB{TaskID: 3, UserID: 7, Title: "t"}, nil)

		rr := serveTask(http.MethodGet, "/tasks/{id}", "/tasks/3", "", NewGetTaskHandler(m), true)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp TaskResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "t", resp.Title)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskGetter(ctrl)
		m.EXPECT().Get(gomock.Any(), int64(7), int64(4)).Return(nil, services.ErrTaskNotFound)

		rr := serveTask(http.MethodGet, "/tasks/{id}", "/tasks/4", "", NewGetTaskHandler(m), true)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Task not found", decodeError(t, rr))
	})

	t.Run("invalid id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rr := serveTask(http.MethodGet, "/tasks/{id}", "/tasks/abc", "", NewGetTaskHandler(NewMockTaskGetter(ctrl)), true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid task id", decodeError(t, rr))
	})
}

func TestUpdateTaskHandler(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskUpdater(ctrl)
		m.EXPECT().
			Update(gomock.Any(), int64(7), int64(3), gomock.Any()).
			DoAndReturn(func(_ any, _, _ int64, patch models.TaskPatch) (*models.TaskDB, error) {
				assert.Nil(t, patch.Title)
				assert.Nil(t, patch.Description)
				assert.Equal(t, "completed", *patch.Status)
				return &models.TaskDB{TaskID: 3, UserID: 7, Status: "completed"}, nil
			})

		rr := serveTask(http.MethodPut, "/tasks/{id}", "/tasks/3", `{"status":"completed"}`, NewUpdateTaskHandler(m), true)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp TaskResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp.Status)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rr := serveTask(http.MethodPut, "/tasks/{id}", "/tasks/3", `{"title":""}`, NewUpdateTaskHandler(NewMockTaskUpdater(ctrl)), true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskUpdater(ctrl)
		m.EXPECT().Update(gomock.Any(), int64(7), int64(9), gomock.Any()).Return(nil, services.ErrTaskNotFound)

		rr := serveTask(http.MethodPut, "/tasks/{id}", "/tasks/9", `{"title":"x"}`, NewUpdateTaskHandler(m), true)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteTaskHandler(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskDeleter(ctrl)
		m.EXPECT().Delete(gomock.Any(), int64(7), int64(3)).Return(nil)

		rr := serveTask(http.MethodDelete, "/tasks/{id}", "/tasks/3", "", NewDeleteTaskHandler(m), true)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := NewMockTaskDeleter(ctrl)
		m.EXPECT().Delete(gomock.Any(), int64(7), int64(3)).Return(services.ErrTaskNotFound)

		rr := serveTask(http.MethodDelete, "/tasks/{id}", "/tasks/3", "", NewDeleteTaskHandler(m), true)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Task not found", decodeError(t, rr))
	})
}

func TestRootHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewRootHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"started"}`, rr.Body.String())
}
