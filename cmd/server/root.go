package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskd/internal/config"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "taskd",
		Short:         "Polling task scheduler",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (default ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override server.log_level")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newTasksCmd(opts),
		newTokenCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

// load reads configuration and installs the process logger.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Server.LogLevel = o.logLevel
	}

	l, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"kafka_enabled", cfg.Events.KafkaEnabled())
	return cfg, l, nil
}
