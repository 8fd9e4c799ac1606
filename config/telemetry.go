package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/oteladapters"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/promadapters"
)

const otlpExportInterval = 10 * time.Second

// Telemetry holds the observability collaborators handed to every component of a binary.
type Telemetry struct {
	Logger           *slog.Logger
	ContextualLogger eventstore.ContextualLogger
	Metrics          eventstore.MetricsCollector
	Tracing          eventstore.TracingCollector
	MetricsHandler   http.Handler

	shutdown []func(context.Context) error
}

// Observer bundles the collaborators the way components expect them.
func (t *Telemetry) Observer() eventstore.Observer {
	observer := eventstore.Observer{
		ContextualLogger: t.ContextualLogger,
		Metrics:          t.Metrics,
		Tracing:          t.Tracing,
	}

	// a nil *slog.Logger must not end up as a non-nil interface
	if t.Logger != nil {
		observer.Logger = t.Logger
	}

	return observer
}

// Shutdown flushes and stops the OpenTelemetry providers, if any.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		errs = append(errs, fn(ctx))
	}

	return errors.Join(errs...)
}

// SetupTelemetry always exposes Prometheus metrics. With an otlp_endpoint, traces and metrics are
// exported over OTLP gRPC as well, and spans are created through the otel tracing adapter.
func (o Observability) SetupTelemetry(ctx context.Context, w io.Writer, spanKind trace.SpanKind) (*Telemetry, error) {
	logger := o.NewLogger(w)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	promMetrics, err := promadapters.NewMetricsCollector(registry, promadapters.WithNamespace(o.MetricsPrefix))
	if err != nil {
		return nil, err
	}

	telemetry := &Telemetry{
		Logger:           logger,
		ContextualLogger: oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler()),
		Metrics:          promMetrics,
		MetricsHandler:   promMetrics.Handler(),
	}

	if o.OTLPEndpoint == "" {
		return telemetry, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(o.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(o.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter), sdktrace.WithResource(res))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(o.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(otlpExportInterval))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	telemetry.Tracing = oteladapters.NewTracingCollector(
		tracerProvider.Tracer(o.ServiceName),
		oteladapters.WithSpanKind(spanKind),
	)
	telemetry.Metrics = TeeMetrics{promMetrics, oteladapters.NewMetricsCollector(meterProvider.Meter(o.ServiceName))}
	telemetry.shutdown = append(telemetry.shutdown, tracerProvider.Shutdown, meterProvider.Shutdown)

	return telemetry, nil
}

// TeeMetrics forwards every measurement to all collectors, using the context variants where offered.
type TeeMetrics []eventstore.MetricsCollector

func (t TeeMetrics) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	t.RecordDurationContext(context.Background(), metric, duration, labels)
}

func (t TeeMetrics) IncrementCounter(metric string, labels map[string]string) {
	t.IncrementCounterContext(context.Background(), metric, labels)
}

func (t TeeMetrics) RecordValue(metric string, value float64, labels map[string]string) {
	t.RecordValueContext(context.Background(), metric, value, labels)
}

func (t TeeMetrics) RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	for _, c := range t {
		eventstore.Observer{Metrics: c}.RecordDuration(ctx, metric, duration, labels)
	}
}

func (t TeeMetrics) IncrementCounterContext(ctx context.Context, metric string, labels map[string]string) {
	for _, c := range t {
		eventstore.Observer{Metrics: c}.IncrementCounter(ctx, metric, labels)
	}
}

func (t TeeMetrics) RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string) {
	for _, c := range t {
		eventstore.Observer{Metrics: c}.RecordValue(ctx, metric, value, labels)
	}
}

var _ eventstore.ContextualMetricsCollector = TeeMetrics{}
