package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/redact"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"-"`
	TraceID string `json:"trace_id,omitempty"`
}

// ResponseOption adjusts how an error response is logged.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
}

// WithElevatedLogLevel logs a 4xx response at WARN instead of DEBUG.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// RespondWithJSON writes data as JSON with the given status.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestLogger(r).Error("failed to encode JSON response", "error", err)
	}
}

// RespondNoContent writes a 204 response.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondWithError writes an ErrorResponse carrying message and the request's trace id.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := newErrorResponse(r, status, message)

	requestLogger(r).Debug("sending error response",
		"status_code", status,
		"message", message,
		"trace_id", resp.TraceID,
		"path", r.URL.Path,
		"method", r.Method)

	RespondWithJSON(w, r, status, resp)
}

// RespondWithErrorAndLog sends userMessage to the client and logs err in
// redacted form. 5xx responses log at ERROR, 429 and elevated 4xx at WARN,
// everything else at DEBUG.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	var o responseOptions
	for _, opt := range opts {
		opt(&o)
	}

	resp := newErrorResponse(r, status, userMessage)

	attrs := []slog.Attr{
		slog.String("trace_id", resp.TraceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	requestLogger(r).LogAttrs(r.Context(), errorLogLevel(status, o.elevateLogLevel), "API error response", attrs...)

	RespondWithJSON(w, r, status, resp)
}

func newErrorResponse(r *http.Request, status int, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		Code:    status,
		TraceID: GetTraceID(r.Context()),
	}
}

func errorLogLevel(status int, elevate bool) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusTooManyRequests:
		return slog.LevelWarn
	case elevate && status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

func requestLogger(r *http.Request) *slog.Logger {
	if r == nil {
		return slog.Default()
	}
	return logger.FromContextOrDefault(r.Context(), slog.Default())
}
