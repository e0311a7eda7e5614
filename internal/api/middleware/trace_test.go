package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	base, buf := logger.GetTestLogger(t)

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("handled")
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	NewTraceMiddleware(base)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.NotEmpty(t, traceID)
	logger.AssertLogContains(t, buf, `"msg":"request started"`)
	logger.AssertLogContains(t, buf, `"msg":"handled"`)
	logger.AssertLogContains(t, buf, `"trace_id":"`+traceID+`"`)
}
