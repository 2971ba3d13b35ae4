package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codepulse/codepulse/internal/queue"
)

// NewQueueCmd creates the queue command for inspecting undelivered
// heartbeats.
func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the offline queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			q, err := queue.Open(ctx, cfg.QueuePath)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}
			defer q.Close() //nolint:errcheck

			all, _ := cmd.Flags().GetBool("all")
			if !all {
				n, err := q.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d queued\n", n)
				return nil
			}

			hbs, err := q.List(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, hb := range hbs {
				if err := enc.Encode(hb); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "print every queued heartbeat as JSON")
	return cmd
}
