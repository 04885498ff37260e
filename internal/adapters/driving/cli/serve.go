package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/custodia-labs/docqa/internal/adapters/driving/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the HTTP API, the watcher and the worker in one process",
	Args:  cobra.NoArgs,
	RunE:  runAll,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(allCmd)
}

func runServe(ctx context.Context) error {
	server, err := newServer(ctx)
	if err != nil {
		return err
	}
	return server.Start(ctx)
}

func runAll(cmd *cobra.Command, _ []string) error {
	g, ctx := errgroup.WithContext(cmd.Context())

	watcher, err := svc.Watcher(ctx)
	if err != nil {
		return err
	}
	w, err := svc.Worker(ctx)
	if err != nil {
		return err
	}
	server, err := newServer(ctx)
	if err != nil {
		return err
	}

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		watcher.Stop()
		return err
	}

	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		watcher.Stop()
		w.Stop()
		return nil
	})
	return g.Wait()
}

func newServer(ctx context.Context) (*httpadapter.Server, error) {
	cfg := svc.Config()

	search, err := svc.Retrieval(ctx)
	if err != nil {
		return nil, err
	}
	ingestion, err := svc.Pipeline(ctx, true)
	if err != nil {
		return nil, err
	}
	db, err := svc.DB(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := svc.Queue(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := svc.Embedding()
	if err != nil {
		return nil, err
	}

	hc := httpadapter.DefaultConfig()
	hc.Port = cfg.HTTP.Port
	hc.Version = version
	hc.ReadTimeout = cfg.HTTP.ReadTimeout
	hc.WriteTimeout = cfg.HTTP.WriteTimeout
	hc.ShutdownTimeout = cfg.HTTP.ShutdownTimeout
	hc.Search = httpadapter.SearchDefaults{
		TopK:                cfg.Search.TopK,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
	}
	hc.Logger = svc.Logger()

	return httpadapter.NewServer(hc, search, ingestion, svc.Auth(), db, queue, embedder), nil
}
