package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened to a task.
type EventType string

// Task lifecycle event types.
const (
	// TaskCreated is emitted after a task has been persisted through the service layer.
	TaskCreated EventType = "task.created"
	// TaskExecuted is emitted after a worker returned without error.
	TaskExecuted EventType = "task.executed"
	// TaskFailed is emitted when a worker returned an error or panicked.
	TaskFailed EventType = "task.failed"
	// TaskDeleted is emitted when a one-shot task was removed after execution.
	TaskDeleted EventType = "task.deleted"
	// TaskRetained is emitted when a failed one-shot task was kept in the store.
	TaskRetained EventType = "task.retained"
	// TaskSkipped is emitted when a recurring task could not be stamped before its run.
	TaskSkipped EventType = "task.skipped"
)

// TaskEvent describes a single change in a task's lifecycle.
// It carries enough information for downstream consumers without
// depending on the task package.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is the lifecycle transition this event records
	Type EventType `json:"type"`

	TaskID   uuid.UUID `json:"task_id"`
	TaskName string    `json:"task_name"`
	Tags     []string  `json:"tags,omitempty"`

	// Error holds the failure message for TaskFailed and TaskSkipped events
	Error string `json:"error,omitempty"`

	// OccurredAt is the timestamp when the event was created
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent creates a TaskEvent of the given type stamped with at.
func NewTaskEvent(
	eventType EventType,
	taskID uuid.UUID,
	taskName string,
	tags []string,
	at time.Time,
) *TaskEvent {
	var tagsCopy []string
	if len(tags) > 0 {
		tagsCopy = append([]string(nil), tags...)
	}
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		TaskName:   taskName,
		Tags:       tagsCopy,
		OccurredAt: at.UTC(),
	}
}

// WithError returns the event with its Error field set from err.
func (e *TaskEvent) WithError(err error) *TaskEvent {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
