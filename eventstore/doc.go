// Package eventstore provides the core types shared by the local event log of a
// restaurant point-of-sale device and everything built on top of it.
//
// The log is append-only and is the single source of truth for business state.
// Everything else (indexes, cached aggregates, read models, replication cursors)
// is derived from it and can be rebuilt from it at any time.
//
// Key types:
//   - Event: an immutable fact with id, type, timestamp, aggregate and JSON payload
//   - Aggregate: the business entity (ticket, customer, report) an event mutates
//   - Filter: criteria for reading events back from the log
//   - BusinessCalendar: maps timestamps onto reporting days
//
// Observability is dependency-free: Logger, ContextualLogger, MetricsCollector and
// TracingCollector are small interfaces which adapters (OpenTelemetry, Prometheus,
// log/slog) implement.
//
// Common usage pattern:
//
//	event, err := eventstore.BuildEvent(
//		"loyalty.accrued",
//		eventstore.Aggregate{ID: "cust-1", Type: "customer"},
//		time.Now(),
//		[]byte(`{"customerId":"cust-1","points":25}`),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	stored, err := store.Append(ctx, event)
package eventstore
