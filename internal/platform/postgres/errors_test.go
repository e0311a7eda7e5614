package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskd/internal/platform/postgres"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		SchemaName:     "public",
		TableName:      "tasks",
		ColumnName:     "name",
		ConstraintName: "tasks_pkey",
	}
}

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	err          error
}

func (m MockResult) LastInsertId() (int64, error) {
	return 0, m.err
}

func (m MockResult) RowsAffected() (int64, error) {
	return m.rowsAffected, m.err
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "generic error", err: errors.New("boom"), expected: false},
		{name: "unique violation", err: newPgError("23505"), expected: true},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", newPgError("23505")), expected: true},
		{name: "foreign key violation", err: newPgError("23503"), expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, postgres.IsUniqueViolation(tt.err))
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "sql.ErrNoRows", err: sql.ErrNoRows, expected: true},
		{name: "store.ErrNotFound", err: store.ErrNotFound, expected: true},
		{name: "store.ErrTaskNotFound", err: store.ErrTaskNotFound, expected: true},
		{name: "generic error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, postgres.IsNotFoundError(tt.err))
		})
	}
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		result     sql.Result
		entityName string
		wantErr    bool
		errIs      error
	}{
		{name: "nil result", result: nil, wantErr: true},
		{name: "zero rows affected", result: MockResult{rowsAffected: 0}, wantErr: true, errIs: store.ErrNotFound},
		{
			name:       "zero rows affected with entity name",
			result:     MockResult{rowsAffected: 0},
			entityName: "task",
			wantErr:    true,
			errIs:      store.ErrNotFound,
		},
		{name: "one row affected", result: MockResult{rowsAffected: 1}},
		{name: "error getting rows affected", result: MockResult{err: errors.New("rows affected error")}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := postgres.CheckRowsAffected(tt.result, tt.entityName)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		errIs  error
		errMsg string
	}{
		{name: "nil error"},
		{name: "sql.ErrNoRows", err: sql.ErrNoRows, errIs: store.ErrNotFound, errMsg: "entity not found"},
		{name: "unique violation", err: newPgError("23505"), errIs: store.ErrDuplicate, errMsg: "entity already exists"},
		{name: "foreign key violation", err: newPgError("23503"), errIs: store.ErrInvalidEntity, errMsg: "foreign key violation"},
		{name: "check constraint violation", err: newPgError("23514"), errIs: store.ErrInvalidEntity, errMsg: "check constraint violation"},
		{name: "not null violation", err: newPgError("23502"), errIs: store.ErrInvalidEntity, errMsg: "not null violation (name)"},
		{name: "other postgres error", err: newPgError("42P01")},
		{name: "generic error", err: errors.New("generic error")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := postgres.MapError(tt.err)

			if tt.err == nil {
				assert.Nil(t, result)
				return
			}
			if tt.errIs == nil {
				assert.Equal(t, tt.err, result)
				return
			}
			assert.ErrorIs(t, result, tt.errIs)
			assert.Contains(t, result.Error(), tt.errMsg)
		})
	}
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		entityName    string
		specificError error
		errIs         error
		errContains   string
	}{
		{name: "generic error passes through", err: errors.New("generic error"), entityName: "task", errContains: "generic error"},
		{name: "no rows is mapped", err: sql.ErrNoRows, entityName: "task", errIs: store.ErrNotFound},
		{name: "without entity name", err: newPgError("23505"), errIs: store.ErrDuplicate, errContains: "duplicate entry"},
		{name: "with entity name", err: newPgError("23505"), entityName: "task", errIs: store.ErrDuplicate, errContains: "task already exists"},
		{
			name:          "with specific error",
			err:           newPgError("23505"),
			entityName:    "task",
			specificError: store.ErrTaskExists,
			errIs:         store.ErrTaskExists,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := postgres.MapUniqueViolation(tt.err, tt.entityName, tt.specificError)

			assert.Error(t, result)
			if tt.errIs != nil {
				assert.ErrorIs(t, result, tt.errIs)
			}
			if tt.errContains != "" {
				assert.Contains(t, result.Error(), tt.errContains)
			}
		})
	}
}
