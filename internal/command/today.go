package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codepulse/codepulse/internal/api"
)

// NewTodayCmd creates the today command: print the server's total for
// the current local calendar day.
func NewTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's tracked time from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Configured() {
				return fmt.Errorf("api_url and api_key must be configured")
			}
			client := api.New(cfg.APIURL, cfg.APIKey).WithUnaryTimeout(cfg.RequestTimeout)
			now := time.Now()
			_, offset := now.Zone()
			summary, err := client.FetchDailySummary(cmd.Context(), offset)
			if err != nil {
				return err
			}
			d := time.Duration(summary.TotalSeconds) * time.Second
			fmt.Fprintf(cmd.OutOrStdout(), "%dh %dm today\n", int(d.Hours()), int(d.Minutes())%60)
			return nil
		},
	}
}
