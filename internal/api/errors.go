package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
)

// ErrInvalidRequest marks malformed or unparsable request input.
var ErrInvalidRequest = errors.New("invalid request")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, task.ErrInvalidOptions),
		errors.Is(err, task.ErrWorkerNotFound),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// The worker refused the message
	case errors.Is(err, task.ErrCreateRejected):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Task already exists"

	case errors.Is(err, task.ErrWorkerNotFound):
		return "No worker registered for task name"

	case errors.Is(err, task.ErrInvalidOptions):
		return "Task metadata does not match worker options"

	case errors.Is(err, task.ErrCreateRejected):
		return "Worker rejected the task"

	case errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task data"

	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'CreateTaskRequest.Name' Error:Field validation for 'Name' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid":
		return "invalid UUID format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and sanitized message for err, logging
// the full error. defaultMsg replaces the generic message for 5xx errors
// when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
