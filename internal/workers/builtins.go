package workers

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/task"
)

// RegisterBuiltins registers SEND_REMINDER and DAILY_REPORT with registry.
func RegisterBuiltins(
	registry *task.Registry,
	store task.TaskStore,
	notifier Notifier,
	clock clockwork.Clock,
) error {
	for _, w := range []task.Worker{
		NewSendReminder(notifier, clock),
		NewDailyReport(store, notifier, clock),
	} {
		if err := registry.Register(w); err != nil {
			return fmt.Errorf("failed to register %s: %w", w.Name, err)
		}
	}
	return nil
}
