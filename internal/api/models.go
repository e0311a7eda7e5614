package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/task"
)

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Name        string         `json:"name"                validate:"required,max=128"`
	Description string         `json:"description"         validate:"max=1024"`
	Tags        []string       `json:"tags"                validate:"dive,required,max=64"`
	Metadata    map[string]any `json:"metadata"`
	RoomID      string         `json:"room_id,omitempty"   validate:"omitempty,uuid"`
	WorldID     string         `json:"world_id,omitempty"  validate:"omitempty,uuid"`
	EntityID    string         `json:"entity_id,omitempty" validate:"omitempty,uuid"`

	// Message, when present, is passed to the worker's creation gate.
	Message *MessageRequest `json:"message,omitempty"`
	State   map[string]any  `json:"state,omitempty"`
}

// MessageRequest is the inbound message a task is created for.
type MessageRequest struct {
	ID       string `json:"id"                  validate:"omitempty,uuid"`
	EntityID string `json:"entity_id,omitempty" validate:"omitempty,uuid"`
	RoomID   string `json:"room_id,omitempty"   validate:"omitempty,uuid"`
	Text     string `json:"text"                validate:"required"`
}

// TaskResponse is the API representation of a task.
type TaskResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	RoomID      *uuid.UUID     `json:"room_id,omitempty"`
	WorldID     *uuid.UUID     `json:"world_id,omitempty"`
	EntityID    *uuid.UUID     `json:"entity_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ListTasksResponse wraps a task listing.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// WorkersResponse lists the registered worker names.
type WorkersResponse struct {
	Workers []string `json:"workers"`
}

// HealthResponse reports process and scheduler liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Scheduler string `json:"scheduler"`
}

func taskToResponse(t *task.Task) TaskResponse {
	metadata := map[string]any(t.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Tags:        tags,
		Metadata:    metadata,
		RoomID:      t.RoomID,
		WorldID:     t.WorldID,
		EntityID:    t.EntityID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// toTask converts a validated request. IDs have already passed the uuid tag.
func (req *CreateTaskRequest) toTask() task.Task {
	tags := req.Tags
	if len(tags) == 0 {
		tags = []string{task.TagQueue}
	}
	return task.Task{
		Name:        req.Name,
		Description: req.Description,
		Tags:        tags,
		Metadata:    task.Metadata(req.Metadata),
		RoomID:      parseOptionalUUID(req.RoomID),
		WorldID:     parseOptionalUUID(req.WorldID),
		EntityID:    parseOptionalUUID(req.EntityID),
	}
}

func (m *MessageRequest) toMessage() *task.Message {
	if m == nil {
		return nil
	}
	msg := &task.Message{
		EntityID: parseOptionalUUID(m.EntityID),
		RoomID:   parseOptionalUUID(m.RoomID),
		Text:     m.Text,
	}
	if id := parseOptionalUUID(m.ID); id != nil {
		msg.ID = *id
	} else {
		msg.ID = uuid.New()
	}
	return msg
}

func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
