package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/oteladapters"
)

func givenTracing(opts ...oteladapters.TracingOption) (*oteladapters.TracingCollector, *tracetest.InMemoryExporter, trace.Tracer) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("pos-test")

	return oteladapters.NewTracingCollector(tracer, opts...), exporter, tracer
}

func Test_TracingCollector_StartAndFinish_RecordsAttributes(t *testing.T) {
	// arrange
	collector, exporter, _ := givenTracing()

	// act
	_, span := collector.StartSpan(context.Background(), "sync.cycle", map[string]string{"namespace": "store-1"})
	span.AddAttribute("pushed", "3")
	collector.FinishSpan(span, "success", map[string]string{"pulled": "2"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.cycle", spans[0].Name)
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "namespace", "store-1")
	assertSpanHasAttribute(t, spans[0], "pushed", "3")
	assertSpanHasAttribute(t, spans[0], "pulled", "2")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	collector, exporter, _ := givenTracing()

	testCases := []struct {
		status      string
		code        codes.Code
		description string
	}{
		{"success", codes.Ok, ""},
		{"ok", codes.Ok, ""},
		{"error", codes.Error, "operation failed"},
		{oteladapters.StatusCanceled, codes.Error, "operation canceled"},
		{oteladapters.StatusTimeout, codes.Error, "operation timed out"},
		{oteladapters.StatusRejected, codes.Error, "rejected by remote"},
		{oteladapters.StatusOffline, codes.Error, "remote unreachable"},
		{"paused", codes.Unset, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			exporter.Reset()

			_, span := collector.StartSpan(context.Background(), "report.generate", nil)
			collector.FinishSpan(span, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.code, spans[0].Status.Code)
			assert.Equal(t, tc.description, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_UnknownStatus_KeptAsAttribute(t *testing.T) {
	collector, exporter, _ := givenTracing()

	_, span := collector.StartSpan(context.Background(), "sync.cycle", nil)
	collector.FinishSpan(span, "paused", nil)

	assertSpanHasAttribute(t, exporter.GetSpans()[0], "status", "paused")
}

func Test_TracingCollector_StartSpan_IsChildOfContextSpan(t *testing.T) {
	// arrange
	collector, exporter, tracer := givenTracing()
	parentCtx, parent := tracer.Start(context.Background(), "POST /v1/{namespace}/events")
	defer parent.End()

	// act
	_, child := collector.StartSpan(parentCtx, "remotestore.push", nil)
	collector.FinishSpan(child, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent.SpanID())
}

func Test_TracingCollector_WithSpanKind(t *testing.T) {
	collector, exporter, _ := givenTracing(oteladapters.WithSpanKind(trace.SpanKindServer))

	_, span := collector.StartSpan(context.Background(), "synchub.pull", nil)
	collector.FinishSpan(span, "success", nil)

	assert.Equal(t, trace.SpanKindServer, exporter.GetSpans()[0].SpanKind)
}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContext(t *testing.T) {
	collector, exporter, _ := givenTracing()

	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpanContext{}, "success", map[string]string{"k": "v"})
	})
	assert.Empty(t, exporter.GetSpans())
}

type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(string)            {}
func (foreignSpanContext) AddAttribute(string, string) {}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expected string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == expected {
			return
		}
	}

	t.Errorf("span %s has no attribute %s=%s", span.Name, key, expected)
}
