package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/events"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
)

// TaskService provides task-related operations for delivery mechanisms such as the admin API.
type TaskService interface {
	// CreateTask validates and persists a new task.
	CreateTask(ctx context.Context, req CreateTaskRequest) (*task.Task, error)

	// GetTask retrieves a task by its ID
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)

	// ListTasks returns the tasks matching filter, oldest first
	ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error)

	// DeleteTask removes a task
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// Workers returns the names of the registered workers
	Workers() []string
}

// CreateTaskRequest carries a new task and, optionally, the message it is
// created in response to. When Message is set the worker's Validate hook
// decides whether creation is allowed.
type CreateTaskRequest struct {
	Task    task.Task
	Message *task.Message
	State   task.State
}

// Common sentinel errors for TaskService
var (
	// ErrTaskNotFound indicates that the task does not exist
	ErrTaskNotFound = errors.New("task not found")
)

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "delete_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// It returns known sentinel errors directly without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	store        task.TaskStore
	registry     *task.Registry
	eventEmitter events.EventEmitter
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewTaskService creates a new TaskService
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore task.TaskStore,
	registry *task.Registry,
	eventEmitter events.EventEmitter,
	clock clockwork.Clock,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if registry == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "registry cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		store:        taskStore,
		registry:     registry,
		eventEmitter: eventEmitter,
		clock:        clock,
		logger:       logger.With("component", "task_service"),
	}, nil
}

// CreateTask checks that a worker exists for the task, runs the worker's
// Validate hook when a message is supplied, validates the options schema and
// persists the task. A task.created event is emitted on success.
func (s *taskServiceImpl) CreateTask(ctx context.Context, req CreateTaskRequest) (*task.Task, error) {
	t := req.Task
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, fmt.Errorf("%w: name is required", task.ErrInvalidTask)
	}

	if _, ok := s.registry.Get(t.Name); !ok {
		return nil, fmt.Errorf("%w: %s", task.ErrWorkerNotFound, t.Name)
	}

	if req.Message != nil {
		allowed, err := s.registry.CanCreate(ctx, t.Name, req.Message, req.State)
		if err != nil {
			s.logger.Error("worker validation failed",
				"error", err,
				"task_name", t.Name,
				"message_id", req.Message.ID)
			return nil, NewTaskServiceError("create_task", "worker validation failed", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", task.ErrCreateRejected, t.Name)
		}
	}

	if err := s.registry.ValidateOptions(t.Name, t.Metadata); err != nil {
		return nil, err
	}

	created, err := s.store.CreateTask(ctx, t)
	if err != nil {
		s.logger.Error("failed to create task",
			"error", err,
			"task_name", t.Name)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.logger.Info("task created",
		"task_id", created.ID,
		"task_name", created.Name,
		"tags", created.Tags)

	event := events.NewTaskEvent(events.TaskCreated, created.ID, created.Name, created.Tags, s.clock.Now())
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		// The task is already persisted; a failed notification does not undo it.
		s.logger.Warn("failed to emit task created event",
			"error", err,
			"task_id", created.ID,
			"event_id", event.ID)
	}

	return &created, nil
}

// GetTask retrieves a task by its ID
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.logger.Error("failed to retrieve task", "error", err, "task_id", id)
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return &t, nil
}

// ListTasks returns the tasks matching filter
func (s *taskServiceImpl) ListTasks(ctx context.Context, filter task.Filter) ([]task.Task, error) {
	tasks, err := s.store.GetTasks(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// DeleteTask removes a task and emits a task.deleted event
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	existing, err := s.store.GetTask(ctx, id)
	if err != nil {
		return NewTaskServiceError("delete_task", "failed to retrieve task", err)
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		s.logger.Error("failed to delete task", "error", err, "task_id", id)
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	s.logger.Info("task deleted", "task_id", id, "task_name", existing.Name)

	event := events.NewTaskEvent(events.TaskDeleted, existing.ID, existing.Name, existing.Tags, s.clock.Now())
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("failed to emit task deleted event", "error", err, "task_id", id)
	}
	return nil
}

// Workers returns the names of the registered workers
func (s *taskServiceImpl) Workers() []string {
	return s.registry.Names()
}
