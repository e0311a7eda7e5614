package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/task"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		panic("taskService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks. Tasks without tags are queued.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid create task payload", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	created, err := h.taskService.CreateTask(r.Context(), service.CreateTaskRequest{
		Task:    req.toTask(),
		Message: req.Message.toMessage(),
		State:   task.State(req.State),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(created))
}

// ListTasks handles GET /api/tasks. Repeated tag parameters must all match.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := task.Filter{
		Tags: query["tag"],
		Name: query.Get("name"),
	}

	var err error
	if filter.RoomID, err = getQueryUUID(r, "room_id"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if filter.EntityID, err = getQueryUUID(r, "entity_id"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	resp := ListTasksResponse{Tasks: make([]TaskResponse, 0, len(tasks)), Count: len(tasks)}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(&tasks[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	log.Debug("task deleted via api", slog.String("task_id", id.String()))
	shared.RespondNoContent(w)
}

// ListWorkers handles GET /api/workers.
func (h *TaskHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, WorkersResponse{Workers: h.taskService.Workers()})
}
