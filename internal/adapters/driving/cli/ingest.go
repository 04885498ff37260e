package cli

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [key]",
	Short: "Enqueue an ingestion job for a source key",
	Long: `Enqueues a job for one object key without consulting or updating the
dispatched-key ledger. A running worker picks it up.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var processCmd = &cobra.Command{
	Use:   "process [key]",
	Short: "Ingest a source key inline",
	Long: `Runs the full ingestion pipeline for one object key in this process:
download, extract, chunk, tag, embed and persist.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	trigger, err := svc.Trigger(ctx)
	if err != nil {
		return err
	}
	job, err := trigger.Trigger(ctx, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Enqueued %s as job %s\n", job.Key, job.ID)
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipeline, err := svc.Pipeline(ctx, false)
	if err != nil {
		return err
	}
	res, err := pipeline.Process(ctx, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("%s: %d pages, %d tables, %d chunks stored (%d short, %d noise discarded) in %s\n",
		res.FileName, res.Pages, res.Tables, res.Chunks, res.Discarded.Short, res.Discarded.Noise, res.Duration)
	if res.AuditPath != "" {
		cmd.Printf("Audit: %s\n", res.AuditPath)
	}
	return nil
}
