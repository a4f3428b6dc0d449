package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fe-catalog/api"
	"fe-catalog/db/ingestion"
	"fe-catalog/internal/config"
	"fe-catalog/internal/logging"
	"fe-catalog/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog install and status endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Get()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	return serve(ctx, cfg, Version)
}

// serve runs the HTTP wrapper until ctx is done
func serve(ctx context.Context, cfg *config.Config, version string) error {
	opts, err := ingestion.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	status := ingestion.NewImportStatus()
	importer, err := ingestion.NewImporter(store, opts, ingestion.WithProgress(status))
	if err != nil {
		return err
	}

	log := logging.Named("api")
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(version, importer, status, log, api.WithMetrics(metrics.New(nil))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Catalog server listening", zap.String("addr", cfg.Server.Addr), zap.String("node", opts.Node))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
