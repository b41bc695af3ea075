// Package main is the entry point for the paramkitd sidecar daemon.
//
// It loads configuration from the environment, resolves the manifest through
// the parameter store into an in-memory cache, keeps the cache fresh on an
// interval, and serves the cached values to co-located processes over a
// loopback HTTP API.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"paramkit/internal/config"
	"paramkit/internal/manifest"
	"paramkit/internal/metrics"
	"paramkit/internal/paramstore"
	"paramkit/internal/sidecar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	slog.SetDefault(logger)

	logger.Info("paramkitd starting",
		"environment", cfg.Environment,
		"manifest", cfg.Sidecar.ManifestPath,
		"listen_addr", cfg.Sidecar.ListenAddr,
		"refresh_interval", cfg.Sidecar.RefreshInterval,
	)

	doc, err := manifest.Load(cfg.Sidecar.ManifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	// Parameter names are not secret (the sidecar lists them on
	// /v1/params); logging them up front makes a misconfigured manifest
	// obvious.
	logger.Info("manifest loaded",
		"parameters", len(doc.Parameters),
		"names", doc.Names(),
	)

	ctx := context.Background()

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	client, err := paramstore.New(ctx,
		paramstore.WithAPI(ssm.NewFromConfig(awsCfg)),
		paramstore.WithRegion(cfg.AWS.Region),
		paramstore.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating parameter store client: %w", err)
	}

	cache := sidecar.NewCache()

	var refresherOpts []sidecar.RefresherOption
	if cfg.AWS.MetricsEnabled {
		rec := metrics.NewRecorder(cloudwatch.NewFromConfig(awsCfg), logger)
		refresherOpts = append(refresherOpts, sidecar.WithMetrics(rec))
	}
	refresher := sidecar.NewRefresher(client, doc.Requests(), cache, cfg.Sidecar.RefreshInterval, logger, refresherOpts...)

	srv, err := sidecar.NewServer(cache, refresher, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes()

	return serve(srv, refresher, cfg, logger)
}

// serve runs the refresh loop and the HTTP server until a shutdown signal
// arrives, then drains both with a 10-second deadline.
func serve(srv *sidecar.Server, refresher *sidecar.Refresher, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              cfg.Sidecar.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()

	refreshDone := make(chan struct{})
	go func() {
		refresher.Run(refreshCtx)
		close(refreshDone)
	}()

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Sidecar.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	stopRefresh()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	select {
	case <-refreshDone:
	case <-ctx.Done():
		logger.Error("refresh loop did not stop before the deadline")
	}

	logger.Info("paramkitd stopped cleanly")
	return nil
}

// loadAWSConfig resolves the AWS SDK configuration, pinning the region when
// one is configured.
func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// newLogger creates a structured JSON logger at the given level.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
