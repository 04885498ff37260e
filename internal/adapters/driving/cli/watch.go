package cli

import (
	"github.com/spf13/cobra"
)

var watchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the source store and enqueue new documents",
	Long: `Lists the configured source prefix on every interval and enqueues an
ingestion job for each supported file that is not yet in the ledger.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run a single polling cycle and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	w, err := svc.Watcher(ctx)
	if err != nil {
		return err
	}

	if watchOnce {
		res, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		if res.Skipped {
			cmd.Println("Skipped: another watcher holds the lock.")
			return nil
		}
		cmd.Printf("Listed %d, new %d, enqueued %d, errors %d\n", res.Listed, res.New, res.Enqueued, res.Errors)
		return nil
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}
