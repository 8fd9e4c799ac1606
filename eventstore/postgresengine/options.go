package postgresengine

import (
	"errors"
	"regexp"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrInvalidTableName      = errors.New("table name must be a lower case sql identifier")
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Option defines a functional option for configuring RemoteStore.
type Option func(*RemoteStore) error

// WithTableName sets the events table, e.g. to keep several hubs in one database.
func WithTableName(tableName string) Option {
	return func(rs *RemoteStore) error {
		if !tableNamePattern.MatchString(tableName) {
			return ErrInvalidTableName
		}

		rs.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger. SQL statements are logged at debug level with their duration.
func WithLogger(logger eventstore.Logger) Option {
	return func(rs *RemoteStore) error {
		rs.observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for trace correlation.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(rs *RemoteStore) error {
		rs.observer.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for push/pull durations, event counts and database errors.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(rs *RemoteStore) error {
		rs.observer.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(rs *RemoteStore) error {
		rs.observer.Tracing = collector
		return nil
	}
}
