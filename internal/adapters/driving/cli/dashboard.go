package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var dashboardInterval time.Duration

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show job queue registry counts",
	Long: `Prints the number of queued, started, finished and failed ingestion jobs.
With --interval the counts are refreshed until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 0, "refresh interval, 0 prints once")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	q, err := svc.Queue(ctx)
	if err != nil {
		return err
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		return err
	}
	printQueueStats(cmd, stats)
	if dashboardInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(dashboardInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := q.Stats(ctx)
			if err != nil {
				return err
			}
			printQueueStats(cmd, stats)
		}
	}
}

func printQueueStats(cmd *cobra.Command, s *domain.QueueStats) {
	cmd.Printf("%s  queued=%d started=%d finished=%d failed=%d\n",
		time.Now().Format(time.TimeOnly), s.Queued, s.Started, s.Finished, s.Failed)
}
