package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*TaskStore, *clockwork.FakeClock) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(ctx, MemoryDSN, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db, "up", logger))

	clock := clockwork.NewFakeClockAt(testEpoch)
	return NewTaskStore(db, logger, WithClock(clock)), clock
}

func TestNewTaskStore_NilDB(t *testing.T) {
	assert.Panics(t, func() { NewTaskStore(nil, nil) })
}

func TestTaskStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	room := uuid.New()
	world := uuid.New()

	created, err := s.CreateTask(ctx, task.Task{
		Name:        "SEND_REMINDER",
		Description: "stand up",
		Tags:        []string{task.TagQueue},
		Metadata:    task.Metadata{"message": "stand up", "timestamp": int64(1714554000000)},
		RoomID:      &room,
		WorldID:     &world,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, testEpoch, created.CreatedAt)

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "SEND_REMINDER", got.Name)
	assert.Equal(t, "stand up", got.Description)
	assert.Equal(t, []string{task.TagQueue}, got.Tags)
	assert.Equal(t, testEpoch, got.CreatedAt)
	assert.Equal(t, testEpoch, got.UpdatedAt)
	require.NotNil(t, got.RoomID)
	assert.Equal(t, room, *got.RoomID)
	require.NotNil(t, got.WorldID)
	assert.Equal(t, world, *got.WorldID)
	assert.Nil(t, got.EntityID)

	msg, ok := got.Metadata.GetString("message")
	require.True(t, ok)
	assert.Equal(t, "stand up", msg)
	ts, ok := got.Metadata.Int64("timestamp")
	require.True(t, ok)
	assert.Equal(t, int64(1714554000000), ts)
}

func TestTaskStore_CreateTask_Errors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, task.Task{Name: ""})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	id := uuid.New()
	_, err = s.CreateTask(ctx, task.Task{ID: id, Name: "X"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, task.Task{ID: id, Name: "X"})
	assert.ErrorIs(t, err, store.ErrTaskExists)
}

func TestTaskStore_GetTask_Missing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStore_GetTasks_Filters(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	room := uuid.New()
	entity := uuid.New()

	create := func(name string, tags []string, roomID, entityID *uuid.UUID) task.Task {
		t.Helper()
		created, err := s.CreateTask(ctx, task.Task{Name: name, Tags: tags, RoomID: roomID, EntityID: entityID})
		require.NoError(t, err)
		clock.Advance(time.Millisecond)
		return created
	}

	reminder := create("SEND_REMINDER", []string{task.TagQueue}, &room, nil)
	report := create("DAILY_REPORT", []string{task.TagQueue, task.TagRepeat}, nil, &entity)
	create("DRAFT", []string{"draft"}, &room, nil)
	create("UNTAGGED", nil, nil, nil)

	ids := func(tasks []task.Task) []uuid.UUID {
		out := make([]uuid.UUID, len(tasks))
		for i, t := range tasks {
			out[i] = t.ID
		}
		return out
	}

	tests := []struct {
		name     string
		filter   task.Filter
		expected []uuid.UUID
	}{
		{name: "queue tag in creation order", filter: task.Filter{Tags: []string{task.TagQueue}}, expected: []uuid.UUID{reminder.ID, report.ID}},
		{name: "all tags required", filter: task.Filter{Tags: []string{task.TagQueue, task.TagRepeat}}, expected: []uuid.UUID{report.ID}},
		{name: "by name", filter: task.Filter{Name: "SEND_REMINDER"}, expected: []uuid.UUID{reminder.ID}},
		{name: "by room and tag", filter: task.Filter{Tags: []string{task.TagQueue}, RoomID: &room}, expected: []uuid.UUID{reminder.ID}},
		{name: "by entity", filter: task.Filter{EntityID: &entity}, expected: []uuid.UUID{report.ID}},
		{name: "no match", filter: task.Filter{Tags: []string{"missing"}}, expected: []uuid.UUID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.GetTasks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(tasks))
		})
	}

	all, err := s.GetTasks(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTaskStore_UpdateTask(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, task.Task{
		Name:     "DAILY_REPORT",
		Tags:     []string{task.TagQueue, task.TagRepeat},
		Metadata: task.Metadata{task.MetaUpdateInterval: 1000},
	})
	require.NoError(t, err)

	clock.Advance(1500 * time.Millisecond)
	updated, err := s.UpdateTask(ctx, created.ID, task.Update{
		Metadata: created.Metadata.WithUpdatedAt(clock.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().UTC(), updated.UpdatedAt)

	reloaded, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	last, ok := reloaded.Metadata.LastRun()
	require.True(t, ok)
	assert.True(t, last.Equal(clock.Now()))
	interval, ok := reloaded.Metadata.UpdateInterval()
	require.True(t, ok)
	assert.Equal(t, time.Second, interval)
	assert.Equal(t, testEpoch, reloaded.CreatedAt)

	description := "daily summary"
	renamed, err := s.UpdateTask(ctx, created.ID, task.Update{Description: &description, Tags: []string{task.TagQueue}})
	require.NoError(t, err)
	assert.Equal(t, description, renamed.Description)
	assert.False(t, renamed.IsRecurring())

	blank := " "
	_, err = s.UpdateTask(ctx, created.ID, task.Update{Name: &blank})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = s.UpdateTask(ctx, uuid.New(), task.Update{})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStore_DeleteTask(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, task.Task{Name: "SEND_REMINDER", Tags: []string{task.TagQueue}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTask(ctx, created.ID))
	_, err = s.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	err = s.DeleteTask(ctx, created.ID)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}

func TestTaskStore_GetTasks_CancelledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetTasks(ctx, task.Filter{Tags: []string{task.TagQueue}})
	assert.Error(t, err)
}

func TestTaskStore_WithTx_Rollback(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(ctx, MemoryDSN, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db, "up", logger))
	s := NewTaskStore(db, logger)

	rollback := errors.New("abort")
	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := s.WithTx(tx).CreateTask(ctx, task.Task{Name: "SEND_REMINDER"})
		require.NoError(t, err)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	tasks, err := s.GetTasks(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
