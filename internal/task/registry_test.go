package task

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Metadata, *Task) error { return nil }

const reminderSchema = `{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string", "minLength": 1},
		"timestamp": {"type": "number"}
	}
}`

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		worker  Worker
		wantErr error
	}{
		{name: "valid", worker: Worker{Name: "A", Execute: noop}},
		{name: "missing name", worker: Worker{Execute: noop}, wantErr: ErrInvalidWorker},
		{name: "blank name", worker: Worker{Name: "  ", Execute: noop}, wantErr: ErrInvalidWorker},
		{name: "missing execute", worker: Worker{Name: "A"}, wantErr: ErrInvalidWorker},
		{name: "bad schema", worker: Worker{Name: "A", Execute: noop, OptionsSchema: `{"type": 12}`}, wantErr: ErrInvalidWorker},
		{name: "schema not json", worker: Worker{Name: "A", Execute: noop, OptionsSchema: `{`}, wantErr: ErrInvalidWorker},
		{name: "with schema", worker: Worker{Name: "A", Execute: noop, OptionsSchema: reminderSchema}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(discardLogger())
			err := r.Register(tt.worker)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, r.Names())
				return
			}
			require.NoError(t, err)
			_, ok := r.Get(tt.worker.Name)
			assert.True(t, ok)
		})
	}
}

func TestRegistry_DuplicateAndReplace(t *testing.T) {
	r := NewRegistry(discardLogger())
	calls := ""
	first := Worker{Name: "A", Execute: func(context.Context, Metadata, *Task) error { calls += "1"; return nil }}
	second := Worker{Name: "A", Execute: func(context.Context, Metadata, *Task) error { calls += "2"; return nil }}

	require.NoError(t, r.Register(first))
	assert.ErrorIs(t, r.Register(second), ErrWorkerExists)

	w, _ := r.Get("A")
	require.NoError(t, w.Execute(context.Background(), Metadata{}, &Task{}))
	assert.Equal(t, "1", calls)

	require.NoError(t, r.Replace(second))
	w, _ = r.Get("A")
	require.NoError(t, w.Execute(context.Background(), Metadata{}, &Task{}))
	assert.Equal(t, "12", calls)

	assert.Panics(t, func() { r.MustRegister(first) })
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry(discardLogger())
	for _, n := range []string{"SEND_REMINDER", "DAILY_REPORT", "CLEANUP"} {
		r.MustRegister(Worker{Name: n, Execute: noop})
	}
	assert.Equal(t, []string{"CLEANUP", "DAILY_REPORT", "SEND_REMINDER"}, r.Names())
}

func TestRegistry_ValidateOptions(t *testing.T) {
	r := NewRegistry(discardLogger())
	r.MustRegister(Worker{Name: "REMIND", Execute: noop, OptionsSchema: reminderSchema})
	r.MustRegister(Worker{Name: "FREE", Execute: noop})

	tests := []struct {
		name    string
		worker  string
		meta    Metadata
		wantErr error
		wantMsg string
	}{
		{name: "valid", worker: "REMIND", meta: Metadata{"message": "hi", "timestamp": int64(1700000000000)}},
		{name: "missing required", worker: "REMIND", meta: Metadata{"timestamp": 1}, wantErr: ErrInvalidOptions, wantMsg: "message"},
		{name: "nil metadata", worker: "REMIND", meta: nil, wantErr: ErrInvalidOptions},
		{name: "wrong type", worker: "REMIND", meta: Metadata{"message": 5}, wantErr: ErrInvalidOptions, wantMsg: "/message"},
		{name: "unencodable", worker: "REMIND", meta: Metadata{"message": "hi", "ch": make(chan int)}, wantErr: ErrInvalidOptions},
		{name: "no schema accepts anything", worker: "FREE", meta: Metadata{"x": []any{1}}},
		{name: "unknown worker", worker: "NOPE", meta: Metadata{}, wantErr: ErrWorkerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateOptions(tt.worker, tt.meta)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.True(t, strings.Contains(err.Error(), tt.wantMsg), err.Error())
			}
		})
	}
}

func TestRegistry_CanCreate(t *testing.T) {
	r := NewRegistry(discardLogger())
	r.MustRegister(Worker{Name: "OPEN", Execute: noop})
	r.MustRegister(Worker{
		Name:    "PICKY",
		Execute: noop,
		Validate: func(_ context.Context, msg *Message, state State) (bool, error) {
			if state == nil {
				return false, errors.New("state must not be nil")
			}
			return strings.Contains(strings.ToLower(msg.Text), "remind"), nil
		},
	})
	r.MustRegister(Worker{
		Name:    "BROKEN",
		Execute: noop,
		Validate: func(context.Context, *Message, State) (bool, error) {
			return false, assert.AnError
		},
	})
	ctx := context.Background()

	ok, err := r.CanCreate(ctx, "OPEN", &Message{Text: "anything"}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CanCreate(ctx, "PICKY", &Message{Text: "Remind me at 5"}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CanCreate(ctx, "PICKY", &Message{Text: "hello"}, State{})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.CanCreate(ctx, "BROKEN", &Message{}, nil)
	assert.ErrorIs(t, err, assert.AnError)

	_, err = r.CanCreate(ctx, "NOPE", &Message{}, nil)
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}
