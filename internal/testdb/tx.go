package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"
)

// OpenFunc opens a database; postgres.Open satisfies it.
type OpenFunc func(ctx context.Context, url string, logger *slog.Logger) (*sql.DB, error)

// Open connects to the test database, skipping the test when none is
// configured. Outside CI a connection failure also skips; in CI it fails.
func Open(t *testing.T, open OpenFunc) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		t.Skipf("Skipping integration test - %s or %s environment variable required", EnvTestDBURL, EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := open(ctx, dbURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		if IsCI() {
			t.Fatalf("failed to connect to test database %s: %v", MaskDatabaseURL(dbURL), err)
		}
		t.Skipf("test database %s unavailable: %v", MaskDatabaseURL(dbURL), err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// WithTx runs fn inside a transaction that is rolled back afterwards, so
// tests never persist their writes.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
