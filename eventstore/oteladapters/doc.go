// Package oteladapters bridges the eventstore observability interfaces to OpenTelemetry.
//
// The POS device and the sync hub wire these into the event log, the read-model engines and the
// replication manager:
//   - MetricsCollector maps durations to histograms, counters to Int64 counters and values to gauges.
//   - TracingCollector creates one span per append, query, report or sync cycle.
//   - SlogBridgeLogger and OTelLogger emit log records correlated with the active span.
package oteladapters
