package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	searchTopK       int
	searchNoKeywords bool
	searchThreshold  float64
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Search ingested documents",
	Long: `Runs a hybrid query: vector similarity over chunk embeddings merged with
stored-keyword matches, boosted by keyword overlap with the question.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchNoKeywords, "no-keywords", false, "disable keyword matching and boosting")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", domain.DefaultSimilarityThreshold, "minimum vector similarity")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := svc.Retrieval(ctx)
	if err != nil {
		return err
	}

	cfg := svc.Config().Search
	req := domain.NewSearchRequest(args[0])
	req.TopK = cfg.TopK
	req.SimilarityThreshold = cfg.SimilarityThreshold
	if cmd.Flags().Changed("top-k") {
		req.TopK = searchTopK
	}
	if cmd.Flags().Changed("threshold") {
		req.SimilarityThreshold = searchThreshold
	}
	req.UseKeywords = !searchNoKeywords

	resp, err := engine.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s search):\n\n", resp.Path)
	for i, r := range resp.Results {
		// [N] file p.page chunk_id (similarity)
		cmd.Printf("  [%d] %s p.%d %s (%.2f)\n", i+1, r.FileName, r.PageNum, r.ChunkID, r.Similarity)
		if len(r.Keywords) > 0 {
			cmd.Printf("      Keywords: %s\n", strings.Join(r.Keywords, ", "))
		}
		cmd.Printf("      %s\n\n", snippet(r.ChunkText, 200))
	}
	return nil
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
