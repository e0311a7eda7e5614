package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendReminder_Execute(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	notifier := &MemoryNotifier{}
	w := NewSendReminder(notifier, clock)
	room := uuid.New()
	tk := &task.Task{ID: uuid.New(), Name: SendReminderName, RoomID: &room}

	t.Run("on time", func(t *testing.T) {
		err := w.Execute(context.Background(), task.Metadata{
			"message":   "stretch",
			"timestamp": float64(start.UnixMilli()),
		}, tk)
		require.NoError(t, err)
	})

	t.Run("late", func(t *testing.T) {
		err := w.Execute(context.Background(), task.Metadata{
			"message":   "drink water",
			"timestamp": start.Add(-90 * time.Minute).UnixMilli(),
		}, tk)
		require.NoError(t, err)
	})

	notes := notifier.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, "Reminder: stretch", notes[0].Text)
	assert.Equal(t, SendReminderName, notes[0].Kind)
	assert.Equal(t, tk.ID, notes[0].TaskID)
	assert.Equal(t, &room, notes[0].RoomID)
	assert.Equal(t, start, notes[0].SentAt)
	assert.Equal(t, "Reminder: drink water (scheduled 1h30m0s ago)", notes[1].Text)
}

func TestSendReminder_ExecuteWithoutMessage(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	notifier := &MemoryNotifier{}
	w := NewSendReminder(notifier, clock)
	options := task.Metadata{"timestamp": start.UnixMilli()}

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{name: "falls back to description", description: " water the plants ", want: "Reminder: water the plants"},
		{name: "plain reminder", description: "", want: "Reminder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &task.Task{ID: uuid.New(), Name: SendReminderName, Description: tt.description}
			require.NoError(t, w.Execute(context.Background(), options, tk))

			notes := notifier.Notifications()
			require.NotEmpty(t, notes)
			assert.Equal(t, tt.want, notes[len(notes)-1].Text)
		})
	}
}

func TestSendReminder_Validate(t *testing.T) {
	w := NewSendReminder(&MemoryNotifier{}, nil)
	ctx := context.Background()

	tests := []struct {
		msg  *task.Message
		want bool
	}{
		{&task.Message{Text: "Remind me to call mom at 5"}, true},
		{&task.Message{Text: "what's the weather"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		got, err := w.Validate(ctx, tt.msg, task.State{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSendReminder_Schema(t *testing.T) {
	registry := task.NewRegistry(discardLogger())
	require.NoError(t, registry.Register(NewSendReminder(&MemoryNotifier{}, nil)))

	assert.NoError(t, registry.ValidateOptions(SendReminderName, task.Metadata{"message": "x", "timestamp": 1}))
	assert.NoError(t, registry.ValidateOptions(SendReminderName, task.Metadata{"timestamp": 1}))
	assert.NoError(t, registry.ValidateOptions(SendReminderName, task.Metadata{}))
	assert.ErrorIs(t, registry.ValidateOptions(SendReminderName, task.Metadata{"message": ""}), task.ErrInvalidOptions)
	assert.ErrorIs(t, registry.ValidateOptions(SendReminderName, task.Metadata{"message": "x", "timestamp": -1}), task.ErrInvalidOptions)
}

func TestDailyReport_Execute(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(start)
	store := task.NewMemoryTaskStore(clock)
	notifier := &MemoryNotifier{}

	for _, tk := range []task.Task{
		{Name: SendReminderName, Tags: []string{task.TagQueue}},
		{Name: SendReminderName, Tags: []string{task.TagQueue}},
		{Name: DailyReportName, Tags: []string{task.TagQueue, task.TagRepeat}},
		{Name: "DRAFT", Tags: []string{}},
	} {
		_, err := store.CreateTask(ctx, tk)
		require.NoError(t, err)
	}

	w := NewDailyReport(store, notifier, clock)
	require.NoError(t, w.Execute(ctx, task.Metadata{"title": "Morning"}, &task.Task{ID: uuid.New()}))

	notes := notifier.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Morning: 3 queued (1 recurring)\n- DAILY_REPORT: 1\n- SEND_REMINDER: 2", notes[0].Text)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, "Task report: 0 queued (0 recurring)", summarize("", nil))
}

func TestRegisterBuiltins(t *testing.T) {
	registry := task.NewRegistry(discardLogger())
	store := task.NewMemoryTaskStore(nil)

	require.NoError(t, RegisterBuiltins(registry, store, NewLogNotifier(discardLogger()), nil))
	assert.Equal(t, []string{DailyReportName, SendReminderName}, registry.Names())

	err := RegisterBuiltins(registry, store, &MemoryNotifier{}, nil)
	assert.ErrorIs(t, err, task.ErrWorkerExists)
}
