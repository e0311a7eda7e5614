package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/task"
)

// SendReminderName is the task name handled by the reminder worker.
const SendReminderName = "SEND_REMINDER"

const reminderSchema = `{
	"type": "object",
	"properties": {
		"message": {"type": "string", "minLength": 1},
		"timestamp": {"type": "number", "minimum": 0}
	}
}`

// ReminderOptions are the task metadata understood by SEND_REMINDER.
type ReminderOptions struct {
	// Message is the reminder text. Without it the task description is used,
	// then a plain "Reminder".
	Message string `json:"message"`
	// Timestamp is the epoch-millisecond time the reminder was scheduled for.
	Timestamp int64 `json:"timestamp"`
}

// NewSendReminder returns the one-shot reminder worker. It only accepts
// creation for messages that ask to be reminded of something.
func NewSendReminder(notifier Notifier, clock clockwork.Clock) task.Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return task.Worker{
		Name:          SendReminderName,
		OptionsSchema: reminderSchema,
		Validate: func(_ context.Context, msg *task.Message, _ task.State) (bool, error) {
			if msg == nil {
				return false, nil
			}
			return strings.Contains(strings.ToLower(msg.Text), "remind"), nil
		},
		Execute: func(ctx context.Context, options task.Metadata, t *task.Task) error {
			opts, err := task.DecodeOptions[ReminderOptions](options)
			if err != nil {
				return err
			}

			text := "Reminder"
			if body := reminderBody(opts, t); body != "" {
				text += ": " + body
			}
			if opts.Timestamp > 0 {
				late := clock.Now().Sub(time.UnixMilli(opts.Timestamp))
				if late >= time.Minute {
					text = fmt.Sprintf("%s (scheduled %s ago)", text, late.Truncate(time.Minute))
				}
			}

			return notifier.Notify(ctx, Notification{
				Kind:     SendReminderName,
				TaskID:   t.ID,
				RoomID:   t.RoomID,
				EntityID: t.EntityID,
				Text:     text,
				SentAt:   clock.Now().UTC(),
			})
		},
	}
}

func reminderBody(opts ReminderOptions, t *task.Task) string {
	if msg := strings.TrimSpace(opts.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(t.Description)
}
