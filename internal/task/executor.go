package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/events"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/store"
)

// Outcome reports what the executor did with a task.
type Outcome string

// Possible outcome values
const (
	// OutcomeSkipped means no worker was registered; the task was left untouched
	// and no event was emitted.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeAborted means the recurring pre-run stamp failed and the worker was not invoked.
	OutcomeAborted Outcome = "aborted"
	// OutcomeCompleted means the worker returned without error.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed means the worker returned an error, panicked or rejected its options.
	OutcomeFailed Outcome = "failed"
)

// ExecutorConfig holds configuration for the task executor
type ExecutorConfig struct {
	// DeleteOnFailure controls whether a one-shot task whose worker failed is
	// deleted like a successful one. When false the task stays queued and is
	// retried on the next tick.
	DeleteOnFailure bool
}

// DefaultExecutorConfig returns an ExecutorConfig with the standard one-shot policy.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{DeleteOnFailure: true}
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithClock sets the clock used for recurring timestamps and events.
func WithClock(c clockwork.Clock) ExecutorOption {
	return func(e *Executor) { e.clock = c }
}

// WithEvents sets the emitter that receives task lifecycle events.
func WithEvents(emitter events.EventEmitter) ExecutorOption {
	return func(e *Executor) { e.events = emitter }
}

// Executor runs a single task through its worker and reconciles the store afterward.
type Executor struct {
	store    TaskStore
	registry *Registry
	config   ExecutorConfig
	clock    clockwork.Clock
	events   events.EventEmitter
	logger   *slog.Logger
}

// NewExecutor creates a new Executor
func NewExecutor(
	taskStore TaskStore,
	registry *Registry,
	config ExecutorConfig,
	logger *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		store:    taskStore,
		registry: registry,
		config:   config,
		clock:    clockwork.NewRealClock(),
		logger:   logger.With("component", "task_executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute dispatches t to its worker. Recurring tasks get metadata.updatedAt
// stamped in the store before the worker runs; one-shot tasks are deleted
// afterward. Failures are logged and reported through the Outcome only.
func (e *Executor) Execute(ctx context.Context, t *Task) Outcome {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		"task_id", t.ID,
		"task_name", t.Name)

	w, ok := e.registry.Get(t.Name)
	if !ok {
		log.Debug("no worker registered for task, leaving it in place")
		return OutcomeSkipped
	}

	if t.IsRecurring() {
		stamped := t.Metadata.WithUpdatedAt(e.clock.Now())
		updated, err := e.store.UpdateTask(ctx, t.ID, Update{Metadata: stamped})
		if err != nil {
			log.Error("failed to stamp recurring task before execution, skipping run",
				"error", err)
			e.emit(ctx, log, events.TaskSkipped, t, err)
			return OutcomeAborted
		}
		t.Metadata = updated.Metadata
		t.UpdatedAt = updated.UpdatedAt
	}

	err := e.run(ctx, w, t)
	if err != nil {
		log.Error("task execution failed", "error", err)
		e.emit(ctx, log, events.TaskFailed, t, err)
	} else {
		log.Debug("task executed")
		e.emit(ctx, log, events.TaskExecuted, t, nil)
	}

	if !t.IsRecurring() {
		e.finishOneShot(ctx, log, t, err)
	}

	if err != nil {
		return OutcomeFailed
	}
	return OutcomeCompleted
}

// run validates the task options and invokes the worker, converting panics into errors.
func (e *Executor) run(ctx context.Context, w Worker, t *Task) (err error) {
	if err := e.registry.ValidateOptions(w.Name, t.Metadata); err != nil {
		return err
	}

	// The worker gets its own copy so it cannot change how the task is reconciled.
	view := t.Clone()
	options := view.Metadata
	if options == nil {
		options = Metadata{}
		view.Metadata = options
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()

	return w.Execute(ctx, options, &view)
}

func (e *Executor) finishOneShot(ctx context.Context, log *slog.Logger, t *Task, runErr error) {
	if runErr != nil && !e.config.DeleteOnFailure {
		log.Warn("retaining failed one-shot task for retry")
		e.emit(ctx, log, events.TaskRetained, t, runErr)
		return
	}

	if err := e.store.DeleteTask(ctx, t.ID); err != nil {
		if store.IsNotFoundError(err) {
			// The worker may delete its own task.
			log.Debug("one-shot task already removed")
			return
		}
		log.Error("failed to delete one-shot task", "error", err)
		return
	}
	e.emit(ctx, log, events.TaskDeleted, t, nil)
}

func (e *Executor) emit(ctx context.Context, log *slog.Logger, typ events.EventType, t *Task, err error) {
	if e.events == nil {
		return
	}
	ev := events.NewTaskEvent(typ, t.ID, t.Name, t.Tags, e.clock.Now()).WithError(err)
	if emitErr := e.events.EmitEvent(ctx, ev); emitErr != nil {
		log.Warn("failed to emit task event", "event_type", typ, "error", emitErr)
	}
}
