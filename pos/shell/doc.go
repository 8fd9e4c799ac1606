// Package shell maps between the event log envelope (eventstore.Event) and the typed domain
// events of package core, and holds the instrumentation shared by the query engines.
package shell
