package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/config"
	"github.com/phrazzld/taskd/internal/platform/postgres"
	"github.com/phrazzld/taskd/internal/platform/sqlite"
	"github.com/phrazzld/taskd/internal/task"
)

// Database drivers accepted by database.driver.
const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// openDatabase connects to the configured SQL backend. The memory driver has
// no database and yields a nil *sql.DB.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	switch cfg.Driver {
	case driverMemory:
		return nil, nil
	case driverPostgres:
		return postgres.Open(ctx, cfg.URL, logger)
	case driverSQLite:
		return sqlite.Open(ctx, cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// migrateDatabase runs a goose command against db with the driver's embedded migrations.
func migrateDatabase(ctx context.Context, driver string, db *sql.DB, command string, logger *slog.Logger) error {
	switch driver {
	case driverPostgres:
		return postgres.Migrate(ctx, db, command, logger)
	case driverSQLite:
		return sqlite.Migrate(ctx, db, command, logger)
	default:
		return fmt.Errorf("driver %q has no migrations", driver)
	}
}

// openTaskStore opens the configured backend, applies pending migrations and
// returns the task store with the database handle to close on shutdown.
func openTaskStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	clock clockwork.Clock,
	logger *slog.Logger,
) (task.TaskStore, *sql.DB, error) {
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if db == nil {
		logger.Warn("using in-memory task store, tasks will not survive a restart")
		return task.NewMemoryTaskStore(clock), nil, nil
	}

	if err := migrateDatabase(ctx, cfg.Driver, db, "up", logger); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	switch cfg.Driver {
	case driverPostgres:
		return postgres.NewTaskStore(db, logger, postgres.WithClock(clock)), db, nil
	default:
		return sqlite.NewTaskStore(db, logger, sqlite.WithClock(clock)), db, nil
	}
}
