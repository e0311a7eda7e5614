package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskd/internal/platform/logger"
)

// TxFn is the body of a transaction. Returning an error rolls it back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in a new transaction on db and commits it when fn
// returns nil. A panic in fn rolls back and is re-raised. Begin and commit
// failures wrap ErrTransactionFailed; an error from fn is returned as is,
// joined with the rollback error if the rollback also failed.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback after panic failed",
				slog.String("error", rbErr.Error()),
				slog.Any("panic", p))
		} else {
			log.Error("transaction rolled back after panic", slog.Any("panic", p))
		}
		panic(p)
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed",
				slog.String("error", rbErr.Error()),
				slog.String("cause", err.Error()))
			return errors.Join(err, fmt.Errorf("%w: rollback: %v", ErrTransactionFailed, rbErr))
		}
		log.Debug("transaction rolled back", slog.String("cause", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}
	return nil
}

// Transact runs fn atomically against db. On a *sql.DB it opens a transaction
// with RunInTransaction; on anything else, typically a caller's *sql.Tx, fn
// runs directly so it joins the outer transaction.
func Transact[T any](ctx context.Context, db DBTX, fn func(ctx context.Context, db DBTX) (T, error)) (T, error) {
	pool, ok := db.(*sql.DB)
	if !ok {
		return fn(ctx, db)
	}

	var out T
	err := RunInTransaction(ctx, pool, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		out, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
