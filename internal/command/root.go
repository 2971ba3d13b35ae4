// Package command wires the codepulse CLI.
package command

import (
	"github.com/spf13/cobra"

	"github.com/codepulse/codepulse/internal/config"
)

var configPath string

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "codepulse",
		Short:         "Coding-activity telemetry agent",
		Long:          "codepulse observes editing activity reported by a host editor adapter,\nemits heartbeats to an aggregation service, and keeps a durable offline\nqueue so no activity is lost across outages.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewFlushCmd())
	cmd.AddCommand(NewQueueCmd())
	cmd.AddCommand(NewTodayCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
