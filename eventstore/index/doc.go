// Package index maintains the in-memory secondary indexes over the event log:
// by event id, by aggregate id, by event type, by business date and a timeline sorted by timestamp.
//
// The indexes are never the source of truth. They are rebuilt in full from the log on cold start
// and updated incrementally on every append. An event that cannot be indexed is skipped and reported
// with eventstore.ErrIndexing, the rest of the log stays queryable.
package index
