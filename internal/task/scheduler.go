package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// DefaultTickInterval is the delay between the end of one tick and the start of the next.
const DefaultTickInterval = time.Second

// SchedulerConfig holds configuration for the polling scheduler
type SchedulerConfig struct {
	// TickInterval is the fixed delay between ticks. Zero or negative means DefaultTickInterval.
	TickInterval time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{TickInterval: DefaultTickInterval}
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock sets the clock driving ticks and due checks.
func WithSchedulerClock(c clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// Scheduler periodically discovers queued tasks and hands the due ones to an Executor.
// Ticks never overlap: the timer is re-armed only after a tick completes.
type Scheduler struct {
	store    TaskStore
	executor *Executor
	config   SchedulerConfig
	clock    clockwork.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	taskStore TaskStore,
	executor *Executor,
	config SchedulerConfig,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if config.TickInterval <= 0 {
		logger.Warn("invalid tick interval specified, using default",
			"specified_interval", config.TickInterval,
			"default_interval", DefaultTickInterval)
		config.TickInterval = DefaultTickInterval
	}

	s := &Scheduler{
		store:    taskStore,
		executor: executor,
		config:   config,
		clock:    clockwork.NewRealClock(),
		logger:   logger.With("component", "task_scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the polling loop. Calling Start while the scheduler is running
// has no effect. The loop ends when Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("scheduler already running")
		return nil
	}

	// A loop stopped mid-tick may still be finishing; the new one waits for it.
	prev := s.done

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done

	go s.loop(loopCtx, prev, done)

	s.logger.Info("scheduler started", "tick_interval", s.config.TickInterval)
	return nil
}

// Stop ends the polling loop. It does not wait for an in-flight tick and does
// not cancel a running worker; use Shutdown to wait.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	s.logger.Info("scheduler stopped")
}

// Shutdown stops the scheduler and waits for the loop to exit or ctx to be done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the polling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, prev <-chan struct{}, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	timer := s.clock.NewTimer(s.config.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			s.Tick(ctx)
			timer.Reset(s.config.TickInterval)
		}
	}
}

// Tick runs one scheduling pass and returns the number of tasks handed to the
// executor. Store errors are logged and end the pass early. Cancelling ctx
// prevents further dispatch but does not interrupt a worker already running.
func (s *Scheduler) Tick(ctx context.Context) int {
	tasks, err := s.store.GetTasks(ctx, Filter{Tags: []string{TagQueue}})
	if err != nil {
		s.logger.Error("failed to query queued tasks", "error", err)
		return 0
	}
	if len(tasks) == 0 {
		return 0
	}

	oneShot := make([]*Task, 0, len(tasks))
	recurring := make([]*Task, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if !t.IsQueued() {
			continue
		}
		if t.IsRecurring() {
			recurring = append(recurring, t)
		} else {
			oneShot = append(oneShot, t)
		}
	}

	now := s.clock.Now()
	runnable := oneShot
	for _, t := range recurring {
		if s.isDue(t, now) {
			runnable = append(runnable, t)
		}
	}

	s.logger.Debug("tick",
		"queued", len(tasks),
		"one_shot", len(oneShot),
		"recurring", len(recurring),
		"runnable", len(runnable))

	execCtx := context.WithoutCancel(ctx)
	dispatched := 0
	for i, t := range runnable {
		if ctx.Err() != nil {
			s.logger.Debug("scheduler stopping, leaving remaining tasks for a later tick",
				"remaining", len(runnable)-i)
			break
		}
		s.executor.Execute(execCtx, t)
		dispatched++
	}
	return dispatched
}

// isDue reports whether a recurring task should run at now. updateInterval
// takes precedence over a cron expression; a task with neither runs every tick.
func (s *Scheduler) isDue(t *Task, now time.Time) bool {
	last := lastRun(t)

	if interval, ok := t.Metadata.UpdateInterval(); ok {
		return now.Sub(last) >= interval
	}

	if spec, ok := t.Metadata.Cron(); ok {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			s.logger.Warn("invalid cron expression on recurring task",
				"task_id", t.ID,
				"task_name", t.Name,
				"cron", spec,
				"error", err)
			return false
		}
		return !sched.Next(last).After(now)
	}

	return true
}

// lastRun resolves the last execution time of a recurring task: metadata
// timestamps first, then the record's own update time, then the Unix epoch.
func lastRun(t *Task) time.Time {
	if ts, ok := t.Metadata.LastRun(); ok {
		return ts
	}
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt
	}
	return time.UnixMilli(0)
}
