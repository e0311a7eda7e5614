package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Open connects to the SQLite database at dsn. The pool is limited to a
// single connection: SQLite serializes writers, and an in-memory database
// exists only on the connection that created it.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	logger.Info("database connection established",
		slog.String("driver", DriverName),
		slog.Bool("in_memory", dsn == MemoryDSN))
	return db, nil
}
