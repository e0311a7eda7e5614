package api

import (
	"net/http"

	"github.com/phrazzld/taskd/internal/api/shared"
)

// SchedulerStatus reports whether the scheduler loop is running.
type SchedulerStatus interface {
	Running() bool
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	scheduler SchedulerStatus
}

// NewHealthHandler creates a HealthHandler. A nil scheduler reports "disabled".
func NewHealthHandler(scheduler SchedulerStatus) *HealthHandler {
	return &HealthHandler{scheduler: scheduler}
}

// Health always answers 200; the scheduler field carries its state.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Scheduler: "disabled"}
	if h.scheduler != nil {
		resp.Scheduler = "stopped"
		if h.scheduler.Running() {
			resp.Scheduler = "running"
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
