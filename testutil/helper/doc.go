// Package helper provides test doubles and fixtures shared by the package tests:
// a slog.Handler spy, a MetricsCollector spy, a TracingCollector spy and builders for domain events.
package helper
