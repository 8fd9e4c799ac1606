package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// Span status strings understood by the collector besides eventstore.StatusSuccess and eventstore.StatusError.
const (
	StatusCanceled = "canceled"
	StatusTimeout  = "timeout"
	StatusRejected = "rejected"
	StatusOffline  = "offline"
)

// TracingCollector implements eventstore.TracingCollector on an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
	kind   trace.SpanKind
}

// TracingOption configures a TracingCollector.
type TracingOption func(*TracingCollector)

// WithSpanKind sets the kind of every started span. The sync hub uses trace.SpanKindServer,
// the device keeps the default trace.SpanKindInternal.
func WithSpanKind(kind trace.SpanKind) TracingOption {
	return func(t *TracingCollector) {
		t.kind = kind
	}
}

// NewTracingCollector creates a collector for a tracer from the application's TracerProvider.
func NewTracingCollector(tracer trace.Tracer, opts ...TracingOption) *TracingCollector {
	t := &TracingCollector{tracer: tracer, kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// StartSpan starts a child span of whatever span ctx carries.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, eventstore.SpanContext) {
	spanCtx, span := t.tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(t.kind),
		trace.WithAttributes(toAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan ends the span. Span contexts not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ eventstore.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// Span exposes the wrapped span, e.g. for recording an error event.
func (s *OTelSpanContext) Span() trace.Span {
	return s.span
}

// SetStatus maps a status string to an OpenTelemetry status code.
// Unknown strings are kept as a "status" attribute and leave the code unset.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case eventstore.StatusSuccess, "ok":
		s.span.SetStatus(codes.Ok, "")
	case eventstore.StatusError:
		s.span.SetStatus(codes.Error, "operation failed")
	case StatusCanceled:
		s.span.SetStatus(codes.Error, "operation canceled")
	case StatusTimeout:
		s.span.SetStatus(codes.Error, "operation timed out")
	case StatusRejected:
		s.span.SetStatus(codes.Error, "rejected by remote")
	case StatusOffline:
		s.span.SetStatus(codes.Error, "remote unreachable")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ eventstore.SpanContext = (*OTelSpanContext)(nil)
