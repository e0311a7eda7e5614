package task

import (
	"context"

	"github.com/google/uuid"
)

// ExecuteFunc performs the work for a task. options is the task's metadata
// and is never nil.
type ExecuteFunc func(ctx context.Context, options Metadata, t *Task) error

// ValidateFunc decides whether a task may be created in response to msg.
type ValidateFunc func(ctx context.Context, msg *Message, state State) (bool, error)

// Message is the inbound conversational message a task is created for.
type Message struct {
	ID       uuid.UUID  `json:"id"`
	EntityID *uuid.UUID `json:"entity_id,omitempty"`
	RoomID   *uuid.UUID `json:"room_id,omitempty"`
	Text     string     `json:"text"`
}

// State is the agent state available to ValidateFunc.
type State map[string]any

// Worker is the handler for all tasks with a given Name.
type Worker struct {
	// Name is the dispatch key; it must equal Task.Name.
	Name string

	// Execute is required.
	Execute ExecuteFunc

	// Validate is an optional creation-time gate. It is never consulted during dispatch.
	Validate ValidateFunc

	// OptionsSchema is an optional JSON Schema document the task metadata must satisfy.
	OptionsSchema string
}
