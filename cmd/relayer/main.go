// Package main is the entry point for the reserve relayer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/reserve-relayer/business/api"
	apiDI "github.com/fd1az/reserve-relayer/business/api/di"
	"github.com/fd1az/reserve-relayer/business/exchange"
	"github.com/fd1az/reserve-relayer/business/orders"
	ordersDI "github.com/fd1az/reserve-relayer/business/orders/di"
	"github.com/fd1az/reserve-relayer/business/quoting"
	"github.com/fd1az/reserve-relayer/business/requestlimit"
	"github.com/fd1az/reserve-relayer/business/ticker"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
	"github.com/fd1az/reserve-relayer/internal/telemetry"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reserve-relayer %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting reserve relayer",
		"version", version,
		"environment", cfg.App.Environment,
	)

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		Environment:    cfg.App.Environment,
		TracingEnabled: cfg.Telemetry.Enabled,
		Exporter:       telemetry.Exporter(cfg.Telemetry.TraceExporter),
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		OTLPMetrics:    cfg.Telemetry.OTLPMetrics,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "telemetry shutdown failed", "error", err)
		}
	}()

	mono, err := monolith.New(ctx, cfg, log, version)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&exchange.Module{},     // Gateway and signer
		&ticker.Module{},       // Price sources and cache
		&quoting.Module{},      // Depends on exchange and ticker
		&orders.Module{},       // Depends on quoting
		&requestlimit.Module{}, // Standalone
		&api.Module{},          // Depends on everything above
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      otelhttp.NewHandler(apiDI.GetRouter(mono.Services()), "relayer"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "http server shutdown failed", "error", err)
	}

	mono.Scheduler().StopAll()
	ordersDI.GetOrders(mono.Services()).Wait()
	return nil
}
