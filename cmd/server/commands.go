package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/events"
	"github.com/phrazzld/taskd/internal/platform/kafka"
	"github.com/phrazzld/taskd/internal/platform/migrate"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/task"
	"github.com/spf13/cobra"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(migrate.Commands, "|") + ">",
		Short:     "Manage the task store schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrate.Commands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == driverMemory {
				return errors.New("the memory driver has no schema to migrate")
			}

			db, err := openDatabase(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			return migrateDatabase(cmd.Context(), cfg.Database.Driver, db, args[0], logger)
		},
	}
}

func newTasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect stored tasks",
	}

	var (
		tags   []string
		name   string
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			store, db, err := openTaskStore(cmd.Context(), cfg.Database, clockwork.NewRealClock(), logger)
			if err != nil {
				return err
			}
			if db != nil {
				defer func() { _ = db.Close() }()
			}

			tasks, err := store.GetTasks(cmd.Context(), task.Filter{Tags: tags, Name: name})
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}
			return printTasks(cmd, tasks, asJSON)
		},
	}
	list.Flags().StringSliceVarP(&tags, "tag", "t", nil, "only tasks carrying every given tag")
	list.Flags().StringVarP(&name, "name", "n", "", "only tasks with this worker name")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	cmd.AddCommand(list)
	return cmd
}

func printTasks(cmd *cobra.Command, tasks []task.Task, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS\tUPDATED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.Tags, ","), t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return w.Flush()
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			jwtService, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := jwtService.GenerateToken(cmd.Context(), subject)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "admin", "token subject")
	return cmd
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with published task events",
	}

	var group string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print task events from the configured Kafka topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if !cfg.Events.KafkaEnabled() {
				return errors.New("events.kafka_brokers is not configured")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			reader := kafka.NewReader(cfg.Events.KafkaBrokers, cfg.Events.Topic, group)
			defer func() { _ = reader.Close() }()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return kafka.Consume(ctx, reader, logger, func(event *events.TaskEvent) error {
				return enc.Encode(event)
			})
		},
	}
	tail.Flags().StringVarP(&group, "group", "g", "", "consumer group; empty reads from the latest offset without committing")

	cmd.AddCommand(tail)
	return cmd
}
