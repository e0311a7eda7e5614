package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is a message produced by a worker for delivery to a room or entity.
type Notification struct {
	Kind     string     `json:"kind"`
	TaskID   uuid.UUID  `json:"task_id"`
	RoomID   *uuid.UUID `json:"room_id,omitempty"`
	EntityID *uuid.UUID `json:"entity_id,omitempty"`
	Text     string     `json:"text"`
	SentAt   time.Time  `json:"sent_at"`
}

// Notifier delivers notifications produced by workers.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

// Notify logs n at info level.
func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	attrs := []any{
		"kind", note.Kind,
		"task_id", note.TaskID,
		"text", note.Text,
	}
	if note.RoomID != nil {
		attrs = append(attrs, "room_id", *note.RoomID)
	}
	if note.EntityID != nil {
		attrs = append(attrs, "entity_id", *note.EntityID)
	}
	n.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}

// MemoryNotifier keeps notifications in memory. It is safe for concurrent use.
type MemoryNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

// Notify records note.
func (m *MemoryNotifier) Notify(_ context.Context, note Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return nil
}

// Notifications returns a copy of the recorded notifications.
func (m *MemoryNotifier) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.notes...)
}
