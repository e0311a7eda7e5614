package task

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Well-known tags. Only tasks carrying TagQueue are visible to the scheduler;
// TagRepeat marks a task as recurring.
const (
	TagQueue  = "queue"
	TagRepeat = "repeat"
)

// Task is a persisted unit of deferred work, dispatched by Name to a Worker.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	RoomID      *uuid.UUID `json:"room_id,omitempty"`
	WorldID     *uuid.UUID `json:"world_id,omitempty"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasTag reports whether the task carries tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// IsQueued reports whether the scheduler should consider the task.
func (t *Task) IsQueued() bool {
	return t.HasTag(TagQueue)
}

// IsRecurring reports whether the task survives execution.
func (t *Task) IsRecurring() bool {
	return t.HasTag(TagRepeat)
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.Tags = slices.Clone(t.Tags)
	c.Metadata = t.Metadata.Clone()
	c.RoomID = cloneID(t.RoomID)
	c.WorldID = cloneID(t.WorldID)
	c.EntityID = cloneID(t.EntityID)
	return c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Filter selects tasks in GetTasks. Zero-valued fields do not constrain the result.
type Filter struct {
	// Tags must all be present on a matching task
	Tags     []string
	Name     string
	RoomID   *uuid.UUID
	EntityID *uuid.UUID
}

// Matches reports whether t satisfies every constraint of f.
func (f Filter) Matches(t *Task) bool {
	for _, tag := range f.Tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	if f.Name != "" && t.Name != f.Name {
		return false
	}
	if f.RoomID != nil && (t.RoomID == nil || *t.RoomID != *f.RoomID) {
		return false
	}
	if f.EntityID != nil && (t.EntityID == nil || *t.EntityID != *f.EntityID) {
		return false
	}
	return true
}

// Update is a partial modification of a task. Nil fields are left unchanged;
// a non-nil Metadata replaces the stored metadata as a whole.
type Update struct {
	Name        *string
	Description *string
	Tags        []string
	Metadata    Metadata
}

// Apply writes the set fields of u onto t.
func (u Update) Apply(t *Task) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Tags != nil {
		t.Tags = slices.Clone(u.Tags)
	}
	if u.Metadata != nil {
		t.Metadata = u.Metadata.Clone()
	}
}

// TaskStore defines the interface for persisting tasks.
// Implementations return errors wrapping store.ErrTaskNotFound for unknown ids.
type TaskStore interface {
	// CreateTask persists t. A zero ID is replaced with a new random one.
	// The stored task, including generated fields, is returned.
	CreateTask(ctx context.Context, t Task) (Task, error)

	// GetTask retrieves a single task by id.
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)

	// GetTasks returns all tasks matching f, oldest first.
	GetTasks(ctx context.Context, f Filter) ([]Task, error)

	// UpdateTask applies u to the task with the given id and returns the result.
	UpdateTask(ctx context.Context, id uuid.UUID, u Update) (Task, error)

	// DeleteTask removes the task with the given id.
	DeleteTask(ctx context.Context, id uuid.UUID) error
}
