// Package cli provides the docqa command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/config"
	"github.com/custodia-labs/docqa/internal/runtime"
)

var (
	version = "dev"

	configPath string
	envFile    string

	// svc is built from configuration before each command runs
	svc *runtime.Services
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Document ingestion and retrieval for question answering",
	Long: `docqa watches a document store for new PDF and text files, turns them
into keyword-tagged, embedded chunks in PostgreSQL, and answers retrieval
queries with a hybrid vector and keyword search.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docqa.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

// Execute runs the root command.
func Execute(ctx context.Context, v string) error {
	version = v
	defer func() {
		if svc != nil {
			_ = svc.Close()
			svc = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	svc = runtime.NewServices(cfg, logger)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if svc == nil {
		return nil
	}
	err := svc.Close()
	svc = nil
	return err
}
