package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/events"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recordingWorker counts invocations and remembers the arguments of the last one.
type recordingWorker struct {
	mu          sync.Mutex
	calls       int
	lastOptions Metadata
	lastTask    Task
	err         error
	called      chan struct{}
}

func newRecordingWorker() *recordingWorker {
	return &recordingWorker{called: make(chan struct{}, 100)}
}

func (w *recordingWorker) execute(_ context.Context, options Metadata, t *Task) error {
	w.mu.Lock()
	w.calls++
	w.lastOptions = options
	w.lastTask = *t
	err := w.err
	w.mu.Unlock()
	w.called <- struct{}{}
	return err
}

func (w *recordingWorker) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func (w *recordingWorker) waitCall(t *testing.T) {
	t.Helper()
	select {
	case <-w.called:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not invoked")
	}
}

// faultyStore wraps a TaskStore and injects errors into selected operations.
type faultyStore struct {
	TaskStore
	getTasksErr error
	updateErr   error
	deleteErr   error
}

func (s *faultyStore) GetTasks(ctx context.Context, f Filter) ([]Task, error) {
	if s.getTasksErr != nil {
		return nil, s.getTasksErr
	}
	return s.TaskStore.GetTasks(ctx, f)
}

func (s *faultyStore) UpdateTask(ctx context.Context, id uuid.UUID, u Update) (Task, error) {
	if s.updateErr != nil {
		return Task{}, s.updateErr
	}
	return s.TaskStore.UpdateTask(ctx, id, u)
}

func (s *faultyStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.TaskStore.DeleteTask(ctx, id)
}

var errStoreDown = errors.New("store unavailable")

// fixture bundles the collaborators most tests need.
type fixture struct {
	clock    *clockwork.FakeClock
	store    *MemoryTaskStore
	registry *Registry
	recorder *events.Recorder
	executor *Executor
	sched    *Scheduler
}

func newFixture(t *testing.T, cfg ExecutorConfig) *fixture {
	t.Helper()
	return newFixtureWithStore(t, cfg, nil)
}

// newFixtureWithStore builds a fixture whose executor and scheduler use wrap(store)
// when wrap is non-nil.
func newFixtureWithStore(t *testing.T, cfg ExecutorConfig, wrap func(TaskStore) TaskStore) *fixture {
	t.Helper()
	logger := discardLogger()
	clock := clockwork.NewFakeClockAt(testEpoch)
	mem := NewMemoryTaskStore(clock)

	var ts TaskStore = mem
	if wrap != nil {
		ts = wrap(mem)
	}

	registry := NewRegistry(logger)
	recorder := &events.Recorder{}
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(recorder)

	executor := NewExecutor(ts, registry, cfg, logger, WithClock(clock), WithEvents(emitter))
	sched := NewScheduler(ts, executor, DefaultSchedulerConfig(), logger, WithSchedulerClock(clock))

	return &fixture{
		clock:    clock,
		store:    mem,
		registry: registry,
		recorder: recorder,
		executor: executor,
		sched:    sched,
	}
}

func (f *fixture) register(t *testing.T, name string, w *recordingWorker) {
	t.Helper()
	require.NoError(t, f.registry.Register(Worker{Name: name, Execute: w.execute}))
}

func (f *fixture) create(t *testing.T, tk Task) Task {
	t.Helper()
	created, err := f.store.CreateTask(context.Background(), tk)
	require.NoError(t, err)
	return created
}
