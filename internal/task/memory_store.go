package task

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/store"
)

// MemoryTaskStore is a TaskStore backed by process memory. It preserves
// insertion order and hands out copies, so callers never share state with it.
type MemoryTaskStore struct {
	mutex sync.RWMutex
	tasks map[uuid.UUID]Task
	order []uuid.UUID
	clock clockwork.Clock
}

// NewMemoryTaskStore creates an empty store. A nil clock means the real clock.
func NewMemoryTaskStore(clock clockwork.Clock) *MemoryTaskStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryTaskStore{
		tasks: make(map[uuid.UUID]Task),
		clock: clock,
	}
}

// CreateTask stores a copy of t.
func (s *MemoryTaskStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	if strings.TrimSpace(t.Name) == "" {
		return Task{}, fmt.Errorf("%w: task name is required", store.ErrInvalidEntity)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	t = t.Clone()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, exists := s.tasks[t.ID]; exists {
		return Task{}, fmt.Errorf("%w: %s", store.ErrTaskExists, t.ID)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	now := s.clock.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return t.Clone(), nil
}

// GetTask returns a copy of the task with the given id.
func (s *MemoryTaskStore) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// GetTasks returns copies of all tasks matching f in insertion order.
func (s *MemoryTaskStore) GetTasks(ctx context.Context, f Filter) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		if f.Matches(&t) {
			result = append(result, t.Clone())
		}
	}
	return result, nil
}

// UpdateTask applies u to the stored task and refreshes UpdatedAt.
func (s *MemoryTaskStore) UpdateTask(ctx context.Context, id uuid.UUID, u Update) (Task, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	u.Apply(&t)
	t.UpdatedAt = s.clock.Now().UTC()
	s.tasks[id] = t
	return t.Clone(), nil
}

// DeleteTask removes the task with the given id.
func (s *MemoryTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored tasks.
func (s *MemoryTaskStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.tasks)
}

var _ TaskStore = (*MemoryTaskStore)(nil)
