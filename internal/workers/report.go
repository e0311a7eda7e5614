package workers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/task"
)

// DailyReportName is the task name handled by the report worker.
const DailyReportName = "DAILY_REPORT"

const reportSchema = `{
	"type": "object",
	"properties": {
		"updateInterval": {"type": "number", "minimum": 1},
		"cron": {"type": "string", "minLength": 1},
		"title": {"type": "string"}
	}
}`

// ReportOptions are the task metadata understood by DAILY_REPORT.
type ReportOptions struct {
	Title string `json:"title"`
}

// NewDailyReport returns the recurring report worker. Each run counts the
// queued tasks per name and sends the summary through notifier.
func NewDailyReport(store task.TaskStore, notifier Notifier, clock clockwork.Clock) task.Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return task.Worker{
		Name:          DailyReportName,
		OptionsSchema: reportSchema,
		Execute: func(ctx context.Context, options task.Metadata, t *task.Task) error {
			opts, err := task.DecodeOptions[ReportOptions](options)
			if err != nil {
				return err
			}

			queued, err := store.GetTasks(ctx, task.Filter{Tags: []string{task.TagQueue}})
			if err != nil {
				return fmt.Errorf("failed to list queued tasks: %w", err)
			}

			return notifier.Notify(ctx, Notification{
				Kind:     DailyReportName,
				TaskID:   t.ID,
				RoomID:   t.RoomID,
				EntityID: t.EntityID,
				Text:     summarize(opts.Title, queued),
				SentAt:   clock.Now().UTC(),
			})
		},
	}
}

func summarize(title string, tasks []task.Task) string {
	if title == "" {
		title = "Task report"
	}

	counts := make(map[string]int)
	recurring := 0
	for i := range tasks {
		counts[tasks[i].Name]++
		if tasks[i].IsRecurring() {
			recurring++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d queued (%d recurring)", title, len(tasks), recurring)
	for _, name := range names {
		fmt.Fprintf(&b, "\n- %s: %d", name, counts[name])
	}
	return b.String()
}
