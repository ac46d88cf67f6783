package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/rookery"
	"github.com/sagarc03/rookery/config"
	rookeryhttp "github.com/sagarc03/rookery/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the rookery HTTP server.

The resource collection is mounted at server.base_path (default /resource).
With metrics enabled, Prometheus metrics are served at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().String("base-path", "", "mount point of the resource collection (default: /resource)")
	serveCmd.Flags().String("public-url", "", "external origin used in links (default: derived from the request)")
	serveCmd.Flags().String("seed", "", "directory or zip archive imported at startup")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var metrics *rookeryhttp.Metrics
	var observer rookery.OperationObserver
	if cfg.Metrics.Enabled {
		metrics = rookeryhttp.NewMetrics()
		observer = metrics
	}

	service, cleanup, err := openService(ctx, cfg, observer)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Storage.Seed != "" {
		if err = seed(ctx, service, cfg.Storage.Seed); err != nil {
			return err
		}
	}

	handler := rookeryhttp.NewHandler(&rookeryhttp.HandlerConfig{
		BasePath:      cfg.Server.BasePath,
		PublicURL:     cfg.Server.PublicURL,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		CORS:          cfg.CORS,
		Metrics:       metrics,
	}, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"base_path", cfg.Server.BasePath,
			"driver", cfg.Storage.Driver,
			"metrics", cfg.Metrics.Enabled,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "err", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
