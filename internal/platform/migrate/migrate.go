package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
)

// TableName is the goose version table shared by every backend.
const TableName = "schema_migrations"

// Supported goose dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Commands accepted by Run.
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandReset   = "reset"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// Commands lists every command Run accepts, in help order.
var Commands = []string{CommandUp, CommandDown, CommandReset, CommandStatus, CommandVersion}

// ErrUnknownCommand is returned for commands outside Commands.
var ErrUnknownCommand = errors.New("unknown migration command")

// Source describes a set of embedded migrations for one dialect.
type Source struct {
	Dialect string
	FS      fs.FS
	Dir     string
}

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Run executes a goose command against db using the migrations in src.
func Run(ctx context.Context, db *sql.DB, src Source, command string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(
		slog.String("correlation_id", uuid.New().String()),
		slog.String("component", "migrations"),
		slog.String("command", command),
		slog.String("dialect", src.Dialect),
	)

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetBaseFS(src.FS)
	defer goose.SetBaseFS(nil)
	goose.SetTableName(TableName)
	if err := goose.SetDialect(src.Dialect); err != nil {
		log.Error("failed to set dialect", slog.String("error", err.Error()))
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	startTime := time.Now()
	log.Info("starting migration command")

	var err error
	switch command {
	case CommandUp:
		err = goose.UpContext(ctx, db, src.Dir)
	case CommandDown:
		err = goose.DownContext(ctx, db, src.Dir)
	case CommandReset:
		err = goose.ResetContext(ctx, db, src.Dir)
	case CommandStatus:
		err = goose.StatusContext(ctx, db, src.Dir)
	case CommandVersion:
		err = goose.VersionContext(ctx, db, src.Dir)
	default:
		log.Error("unknown migration command", slog.Any("valid_commands", Commands))
		return fmt.Errorf("%w: %s (expected one of %v)", ErrUnknownCommand, command, Commands)
	}

	duration := time.Since(startTime)
	if err != nil {
		log.Error("migration command failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", duration.Milliseconds()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed", slog.Int64("duration_ms", duration.Milliseconds()))
	return nil
}

// Version returns the current schema version recorded in the goose table.
func Version(ctx context.Context, db *sql.DB, src Source) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetTableName(TableName)
	if err := goose.SetDialect(src.Dialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level without exiting; Run reports the failure to its caller.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
