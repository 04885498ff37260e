package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show chunk store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	engine, err := svc.Retrieval(ctx)
	if err != nil {
		return err
	}
	stats, err := engine.Stats(ctx)
	if err != nil {
		return err
	}

	printCorpusStats(cmd, stats)
	return nil
}

func printCorpusStats(cmd *cobra.Command, s *domain.CorpusStats) {
	cmd.Printf("Chunks:          %d\n", s.TotalChunks)
	cmd.Printf("Files:           %d\n", s.UniqueFiles)
	cmd.Printf("Embedding model: %s\n", s.EmbeddingModel)
	if s.LastUpdate != nil {
		cmd.Printf("Last update:     %s\n", s.LastUpdate.Format("2006-01-02 15:04:05"))
	} else {
		cmd.Println("Last update:     never")
	}
}
