package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/config"
	"github.com/phrazzld/taskd/internal/events"
	"github.com/phrazzld/taskd/internal/platform/kafka"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/task"
	"github.com/phrazzld/taskd/internal/workers"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	clock  clockwork.Clock
	db     *sql.DB

	taskStore   task.TaskStore
	registry    *task.Registry
	executor    *task.Executor
	scheduler   *task.Scheduler
	taskService service.TaskService
	jwtService  auth.JWTService

	eventEmitter *events.InMemoryEventEmitter
	publisher    *kafka.Publisher
}

// appOption overrides a dependency, mostly for tests.
type appOption func(*application)

func withClock(c clockwork.Clock) appOption {
	return func(app *application) { app.clock = c }
}

func withTaskStore(s task.TaskStore) appOption {
	return func(app *application) { app.taskStore = s }
}

func withPublisher(p *kafka.Publisher) appOption {
	return func(app *application) { app.publisher = p }
}

// newApplication wires stores, workers, the scheduler and the admin service.
// Nothing is started; call Run for that.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(app)
	}

	var err error
	app.jwtService, err = auth.NewJWTServiceWithClock(cfg.Auth, app.clock)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if app.taskStore == nil {
		app.taskStore, app.db, err = openTaskStore(ctx, cfg.Database, app.clock, logger)
		if err != nil {
			return nil, err
		}
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	if app.publisher == nil && cfg.Events.KafkaEnabled() {
		app.publisher = kafka.NewPublisher(kafka.NewWriter(cfg.Events.KafkaBrokers, cfg.Events.Topic), logger)
		logger.Info("publishing task events to kafka",
			"brokers", cfg.Events.KafkaBrokers,
			"topic", cfg.Events.Topic)
	}
	if app.publisher != nil {
		app.eventEmitter.RegisterHandler(app.publisher)
	}

	app.registry = task.NewRegistry(logger)
	notifier := workers.NewLogNotifier(logger)
	if err := workers.RegisterBuiltins(app.registry, app.taskStore, notifier, app.clock); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to register workers: %w", err)
	}

	app.executor = task.NewExecutor(
		app.taskStore,
		app.registry,
		task.ExecutorConfig{DeleteOnFailure: cfg.Scheduler.DeleteOnFailure},
		logger,
		task.WithClock(app.clock),
		task.WithEvents(app.eventEmitter),
	)
	app.scheduler = task.NewScheduler(
		app.taskStore,
		app.executor,
		task.SchedulerConfig{TickInterval: cfg.Scheduler.TickInterval()},
		logger,
		task.WithSchedulerClock(app.clock),
	)

	app.taskService, err = service.NewTaskService(app.taskStore, app.registry, app.eventEmitter, app.clock, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized",
		"workers", app.registry.Names(),
		"tick_interval", cfg.Scheduler.TickInterval().String())
	return app, nil
}

// Run starts the scheduler and serves the admin API until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases the broker and database connections.
func (app *application) cleanup() {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("error closing kafka publisher", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
