package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codepulse/codepulse/internal/agent"
	"github.com/codepulse/codepulse/internal/logging"
	"github.com/codepulse/codepulse/internal/queue"
)

// NewFlushCmd creates the flush command: one bounded pass over the
// offline queue.
func NewFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Attempt delivery of all queued heartbeats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Configured() {
				return fmt.Errorf("api_url and api_key must be configured")
			}
			ctx := cmd.Context()
			q, err := queue.Open(ctx, cfg.QueuePath)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}
			defer q.Close() //nolint:errcheck

			a := agent.New(cfg, q, logging.New(cfg.LogPath, cfg.LogLevel, cfg.LogFormat))
			delivered, flushErr := a.Flush(ctx)
			remaining, countErr := q.Count(ctx)
			if countErr != nil {
				return countErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d, %d remaining\n", delivered, remaining)
			return flushErr
		},
	}
}
