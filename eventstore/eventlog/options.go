package eventlog

import (
	"errors"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

var ErrEmptyDeviceID = errors.New("empty device id supplied")

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithDeviceID sets the origin stamped onto locally created events. Default: "local".
func WithDeviceID(deviceID string) Option {
	return func(s *Store) error {
		if deviceID == "" {
			return ErrEmptyDeviceID
		}

		s.deviceID = deviceID

		return nil
	}
}

// WithCache sets the cache whose entries are invalidated on append.
func WithCache(cache CacheInvalidator) Option {
	return func(s *Store) error {
		s.cache = cache
		return nil
	}
}

// WithLogger sets the logger for the Store.
// Debug level: per-append details. Info level: open/rebuild summaries.
// Warn level: skipped index entries. Error level: persistence and listener failures.
func WithLogger(logger eventstore.Logger) Option {
	return func(s *Store) error {
		s.observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, which takes precedence over WithLogger.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(s *Store) error {
		s.observer.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(s *Store) error {
		s.observer.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(s *Store) error {
		s.observer.Tracing = collector
		return nil
	}
}
