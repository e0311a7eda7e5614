package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "generic error", err: errors.New("some error"), expected: false},
		{name: "ErrNotFound", err: ErrNotFound, expected: true},
		{name: "wrapped ErrNotFound", err: fmt.Errorf("lookup: %w", ErrNotFound), expected: true},
		{name: "ErrTaskNotFound", err: ErrTaskNotFound, expected: true},
		{name: "wrapped ErrTaskNotFound", err: fmt.Errorf("get task: %w", ErrTaskNotFound), expected: true},
		{name: "duplicate is not not-found", err: ErrTaskExists, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "ErrDuplicate", err: ErrDuplicate, expected: true},
		{name: "ErrTaskExists", err: ErrTaskExists, expected: true},
		{name: "wrapped ErrTaskExists", err: fmt.Errorf("create task: %w", ErrTaskExists), expected: true},
		{name: "not found is not duplicate", err: ErrTaskNotFound, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDuplicateError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	originalErr := errors.New("database connection failed")
	storeErr := NewStoreError("task", "create", "database error", originalErr)

	assert.Equal(t,
		"create operation on task failed: database error: database connection failed",
		storeErr.Error())
	assert.ErrorIs(t, storeErr, originalErr)

	bare := NewStoreError("task", "delete", "nothing to delete", nil)
	assert.Equal(t, "delete operation on task failed: nothing to delete", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
