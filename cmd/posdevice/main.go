package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/pos-eventstore-go/config"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/sqliteengine"
	"github.com/AntonStoeckl/pos-eventstore-go/replication/httpremote"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("posdevice stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Device.ID == "" {
		if cfg.Device.ID, err = os.Hostname(); err != nil {
			return fmt.Errorf("device id: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.ServiceName == config.Default().Observability.ServiceName {
		cfg.Observability.ServiceName = "posdevice"
	}

	telemetry, err := cfg.Observability.SetupTelemetry(ctx, os.Stdout, trace.SpanKindInternal)
	if err != nil {
		return err
	}

	logger := telemetry.Logger.With("device_id", cfg.Device.ID)

	db, err := sqliteengine.OpenFile(ctx, cfg.Device.DataPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	engine, err := sqliteengine.New(db, sqliteengine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	factory := httpremote.Factory(httpremote.WithLogger(logger))

	d, err := newDevice(ctx, cfg, telemetry, engine, factory)
	if err != nil {
		return err
	}

	logger.Info("event log opened", "path", cfg.Device.DataPath, "last_seq", d.store.LastSeq())

	if err := d.startSync(ctx); err != nil {
		return err
	}

	apiServer := &http.Server{
		Addr:              cfg.Device.ListenAddress,
		Handler:           newAPI(d, telemetry.Observer()),
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
	for _, server := range []*http.Server{apiServer, metricsServer} {
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

	return errors.Join(
		err,
		apiServer.Shutdown(shutdownCtx),
		metricsServer.Shutdown(shutdownCtx),
		d.stop(shutdownCtx),
		telemetry.Shutdown(shutdownCtx),
	)
}
