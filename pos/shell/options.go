package shell

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
)

var ErrNilClock = errors.New("clock must not be nil")

// EngineConfig holds the optional collaborators of a query engine.
type EngineConfig struct {
	Cache    *cache.Cache
	Observer eventstore.Observer
	Clock    func() time.Time
}

// Option defines a functional option for configuring a query engine.
type Option func(*EngineConfig) error

// BuildEngineConfig applies options over the defaults: no cache, no observability, time.Now.
func BuildEngineConfig(options ...Option) (EngineConfig, error) {
	config := EngineConfig{Clock: time.Now}

	for _, option := range options {
		if err := option(&config); err != nil {
			return EngineConfig{}, err
		}
	}

	return config, nil
}

// WithCache sets the query cache. Engines register their cache dependencies on it.
func WithCache(c *cache.Cache) Option {
	return func(config *EngineConfig) error {
		config.Cache = c
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger eventstore.Logger) Option {
	return func(config *EngineConfig) error {
		config.Observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(config *EngineConfig) error {
		config.Observer.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(config *EngineConfig) error {
		config.Observer.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(config *EngineConfig) error {
		config.Observer.Tracing = collector
		return nil
	}
}

// WithClock replaces time.Now, e.g. for the timestamps of generated reports.
func WithClock(clock func() time.Time) Option {
	return func(config *EngineConfig) error {
		if clock == nil {
			return ErrNilClock
		}

		config.Clock = clock

		return nil
	}
}
