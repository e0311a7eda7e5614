package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
)

// MockTaskStore implements task.TaskStore for testing. Unset methods return
// Err, or store.ErrTaskNotFound for lookups when Err is nil. Calls are counted
// per method.
type MockTaskStore struct {
	CreateTaskFn func(ctx context.Context, t task.Task) (task.Task, error)
	GetTaskFn    func(ctx context.Context, id uuid.UUID) (task.Task, error)
	GetTasksFn   func(ctx context.Context, f task.Filter) ([]task.Task, error)
	UpdateTaskFn func(ctx context.Context, id uuid.UUID, u task.Update) (task.Task, error)
	DeleteTaskFn func(ctx context.Context, id uuid.UUID) error

	Err error

	mu    sync.Mutex
	calls map[string]int
}

var _ task.TaskStore = (*MockTaskStore)(nil)

func (m *MockTaskStore) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was invoked.
func (m *MockTaskStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockTaskStore) lookupErr() error {
	if m.Err != nil {
		return m.Err
	}
	return store.ErrTaskNotFound
}

// CreateTask implements the task.TaskStore interface
func (m *MockTaskStore) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	m.record("CreateTask")
	if m.CreateTaskFn != nil {
		return m.CreateTaskFn(ctx, t)
	}
	if m.Err != nil {
		return task.Task{}, m.Err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return t, nil
}

// GetTask implements the task.TaskStore interface
func (m *MockTaskStore) GetTask(ctx context.Context, id uuid.UUID) (task.Task, error) {
	m.record("GetTask")
	if m.GetTaskFn != nil {
		return m.GetTaskFn(ctx, id)
	}
	return task.Task{}, m.lookupErr()
}

// GetTasks implements the task.TaskStore interface
func (m *MockTaskStore) GetTasks(ctx context.Context, f task.Filter) ([]task.Task, error) {
	m.record("GetTasks")
	if m.GetTasksFn != nil {
		return m.GetTasksFn(ctx, f)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return []task.Task{}, nil
}

// UpdateTask implements the task.TaskStore interface
func (m *MockTaskStore) UpdateTask(ctx context.Context, id uuid.UUID, u task.Update) (task.Task, error) {
	m.record("UpdateTask")
	if m.UpdateTaskFn != nil {
		return m.UpdateTaskFn(ctx, id, u)
	}
	return task.Task{}, m.lookupErr()
}

// DeleteTask implements the task.TaskStore interface
func (m *MockTaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	m.record("DeleteTask")
	if m.DeleteTaskFn != nil {
		return m.DeleteTaskFn(ctx, id)
	}
	return m.lookupErr()
}
