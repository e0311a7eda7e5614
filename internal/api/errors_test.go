package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"invalid token", fmt.Errorf("parse: %w", auth.ErrInvalidToken), http.StatusUnauthorized, "Invalid token"},
		{"service not found", service.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
		{"store not found", fmt.Errorf("%w: 123", store.ErrTaskNotFound), http.StatusNotFound, "Task not found"},
		{"duplicate", store.ErrTaskExists, http.StatusConflict, "Task already exists"},
		{"unknown worker", fmt.Errorf("%w: NOPE", task.ErrWorkerNotFound), http.StatusBadRequest, "No worker registered for task name"},
		{"bad options", task.ErrInvalidOptions, http.StatusBadRequest, "Task metadata does not match worker options"},
		{"invalid task", task.ErrInvalidTask, http.StatusBadRequest, "Invalid task data"},
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "Invalid request"},
		{"rejected", task.ErrCreateRejected, http.StatusUnprocessableEntity, "Worker rejected the task"},
		{"unknown", errors.New("connection reset by peer"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.message, GetSafeErrorMessage(tc.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestSanitizeValidationError(t *testing.T) {
	type payload struct {
		Name   string `validate:"required"`
		RoomID string `validate:"omitempty,uuid"`
	}
	v := validator.New()

	err := v.Struct(payload{})
	require.Error(t, err)
	assert.Equal(t, "Invalid Name: required field", SanitizeValidationError(err))

	err = v.Struct(payload{Name: "X", RoomID: "not-a-uuid"})
	require.Error(t, err)
	assert.Equal(t, "Invalid RoomID: invalid UUID format", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("boom")))
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		defaultMsg string
		status     int
		message    string
	}{
		{"mapped error ignores default", service.ErrTaskNotFound, "Failed", http.StatusNotFound, "Task not found"},
		{"server error uses default", errors.New("pq: password=secret"), "Failed to list tasks", http.StatusInternalServerError, "Failed to list tasks"},
		{"server error without default", errors.New("boom"), "", http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

			HandleAPIError(w, r, tc.err, tc.defaultMsg)

			assert.Equal(t, tc.status, w.Code)
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body.Error)
			assert.NotContains(t, w.Body.String(), "secret")
		})
	}
}
