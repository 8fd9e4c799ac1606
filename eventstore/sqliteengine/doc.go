// Package sqliteengine is the durable storage medium of the local event log, backed by SQLite
// (modernc.org/sqlite, no cgo).
//
// The database runs with a single connection in WAL mode. All writes go through one writer
// goroutine, each in its own transaction, so an event is either fully committed or not at all.
// The same database holds the replication cursors.
package sqliteengine
