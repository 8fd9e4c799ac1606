package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/pos-eventstore-go/config"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("synchub stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.ServiceName == config.Default().Observability.ServiceName {
		cfg.Observability.ServiceName = "synchub"
	}

	telemetry, err := cfg.Observability.SetupTelemetry(ctx, os.Stdout, trace.SpanKindServer)
	if err != nil {
		return err
	}

	logger := telemetry.Logger.With("backend", cfg.Hub.Backend)

	h, err := newHub(ctx, cfg.Hub, telemetry)
	if err != nil {
		return errors.Join(err, telemetry.Shutdown(context.Background()))
	}

	hubServer := &http.Server{
		Addr:              cfg.Hub.ListenAddress,
		Handler:           h.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.MetricsHandler)

	metricsServer := &http.Server{
		Addr:              cfg.Observability.MetricsAddress,
		Handler:           metricsMux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErrs := make(chan error, 2)
	for _, server := range []*http.Server{hubServer, metricsServer} {
		go func() {
			logger.Info("listening", "address", server.Addr)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrs <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErrs:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// watch connections are hijacked and are not waited for by Shutdown
	return errors.Join(
		err,
		hubServer.Shutdown(shutdownCtx),
		metricsServer.Shutdown(shutdownCtx),
		h.close(),
		telemetry.Shutdown(shutdownCtx),
	)
}
