package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AntonStoeckl/pos-eventstore-go/config"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/postgresengine"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
	"github.com/AntonStoeckl/pos-eventstore-go/replication/httpremote"
	"github.com/AntonStoeckl/pos-eventstore-go/replication/memremote"
)

type hub struct {
	handler http.Handler
	close   func() error
}

func newHub(ctx context.Context, cfg config.Hub, telemetry *config.Telemetry) (*hub, error) {
	backend, closeBackend, err := openBackend(ctx, cfg, telemetry)
	if err != nil {
		return nil, err
	}

	handlerOptions := []httpremote.HandlerOption{httpremote.WithHandlerMetrics(telemetry.Metrics)}
	if telemetry.Logger != nil {
		handlerOptions = append(handlerOptions, httpremote.WithHandlerLogger(telemetry.Logger))
	}
	if telemetry.Tracing != nil {
		handlerOptions = append(handlerOptions, httpremote.WithHandlerTracing(telemetry.Tracing))
	}

	syncHandler, err := httpremote.NewHandler(backend, handlerOptions...)
	if err != nil {
		_ = closeBackend()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", syncHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &hub{handler: mux, close: closeBackend}, nil
}

func openBackend(ctx context.Context, cfg config.Hub, telemetry *config.Telemetry) (replication.Remote, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memremote.New(), func() error { return nil }, nil

	case config.BackendPostgres:
		options := []postgresengine.Option{
			postgresengine.WithContextualLogger(telemetry.ContextualLogger),
			postgresengine.WithMetrics(telemetry.Metrics),
			postgresengine.WithTracing(telemetry.Tracing),
		}

		store, err := cfg.Postgres.OpenRemoteStore(ctx, options...)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown hub backend %q", config.ErrInvalidConfig, cfg.Backend)
}
