package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/oteladapters"
)

func Test_SlogBridgeLoggerWithHandler_LogsAllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "event appended", "seq", 4)
	logger.InfoContext(ctx, "sync state changed", "state", "active")
	logger.WarnContext(ctx, "event skipped", "event_type", "sale.unknown")
	logger.ErrorContext(ctx, "sync cycle failed", "error", "remote unavailable")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG"`)
	assert.Contains(t, output, `"seq":4`)
	assert.Contains(t, output, `"state":"active"`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"msg":"sync cycle failed"`)
}

func Test_SlogBridgeLogger_WithActiveSpan_DoesNotPanic(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := provider.Tracer("pos-test").Start(context.Background(), "sync.cycle")
	defer span.End()

	logger := oteladapters.NewSlogBridgeLogger("pos-test")

	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "sync cycle completed", "pushed", 2)
	})
}

func Test_OTelLogger_EmitsTypedAttributes(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.WarnContext(context.Background(), "event skipped",
		"event_type", "payment.unknown",
		"seq", 12,
		"online", false,
		"amount", 4.5,
		"error", errors.New("unknown event type"),
		"dangling",
	)

	// assert
	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, log.SeverityWarn, record.Severity())
	assert.Equal(t, "WARN", record.SeverityText())
	assert.Equal(t, "event skipped", record.Body().AsString())

	attrs := map[string]log.Value{}
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value

		return true
	})

	assert.Len(t, attrs, 5)
	assert.Equal(t, "payment.unknown", attrs["event_type"].AsString())
	assert.Equal(t, int64(12), attrs["seq"].AsInt64())
	assert.False(t, attrs["online"].AsBool())
	assert.InDelta(t, 4.5, attrs["amount"].AsFloat64(), 0.0001)
	assert.Equal(t, "unknown event type", attrs["error"].AsString())
}

func Test_OTelLogger_NoopProvider_DoesNotPanic(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("pos-test"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug")
		logger.InfoContext(ctx, "info", "key")
		logger.ErrorContext(ctx, "error", 42, "non-string key")
	})
}

type recordingLogger struct {
	embedded.Logger

	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.records = append(l.records, record)
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}
