package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyackey/posthog/internal/archive"
	"github.com/steveyackey/posthog/internal/config"
	"github.com/steveyackey/posthog/internal/events"
	"github.com/steveyackey/posthog/internal/ingest"
	"github.com/steveyackey/posthog/internal/server"
	"github.com/steveyackey/posthog/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capture HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("event bus enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("event bus disabled (CAPTURE_NATS_URL not set)")
		}

		// Create the pipeline and HTTP server.
		captureServer := server.NewCaptureServer(ingest.NewService(store, publisher))
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           captureServer.NewHTTPHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start the archive scheduler if destinations are configured.
		var scheduler *archive.Scheduler
		if cfg.ArchiveInterval > 0 && len(cfg.Archive.S3) > 0 {
			var dests []archive.Destination
			for _, s3cfg := range cfg.Archive.S3 {
				dest, err := archive.NewS3Destination(
					context.Background(),
					s3cfg.Bucket,
					s3cfg.Key,
					s3cfg.Region,
					s3cfg.Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 archive destination", "bucket", s3cfg.Bucket, "err", err)
					continue
				}
				dests = append(dests, dest)
				logger.Info("archive destination enabled", "bucket", s3cfg.Bucket, "key", s3cfg.Key)
			}
			if len(dests) > 0 {
				scheduler = archive.NewScheduler(store, dests, cfg.ArchiveInterval, logger)
				scheduler.Start()
			}
		}

		// Wait for shutdown signal.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)

		if scheduler != nil {
			scheduler.Stop()
		}
		publisher.Close()
		return store.Close()
	},
}
