package replication

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

var (
	ErrNilLogger        = errors.New("logger must not be nil")
	ErrNilMetrics       = errors.New("metrics collector must not be nil")
	ErrNilTracing       = errors.New("tracing collector must not be nil")
	ErrNilStateListener = errors.New("state listener must not be nil")
	ErrNilClock         = errors.New("clock must not be nil")
	ErrMissingStore     = errors.New("local store and cursor store are required")
	ErrMissingFactory   = errors.New("remote factory is required")
)

// ManagerOption defines a functional option for configuring a Manager.
type ManagerOption func(*Manager) error

func WithLogger(logger eventstore.Logger) ManagerOption {
	return func(m *Manager) error {
		if logger == nil {
			return ErrNilLogger
		}
		m.observer.Logger = logger

		return nil
	}
}

func WithContextualLogger(logger eventstore.ContextualLogger) ManagerOption {
	return func(m *Manager) error {
		if logger == nil {
			return ErrNilLogger
		}
		m.observer.ContextualLogger = logger

		return nil
	}
}

func WithMetrics(collector eventstore.MetricsCollector) ManagerOption {
	return func(m *Manager) error {
		if collector == nil {
			return ErrNilMetrics
		}
		m.observer.Metrics = collector

		return nil
	}
}

func WithTracing(collector eventstore.TracingCollector) ManagerOption {
	return func(m *Manager) error {
		if collector == nil {
			return ErrNilTracing
		}
		m.observer.Tracing = collector

		return nil
	}
}

// WithStateListener registers a callback for state changes. It may be given multiple times.
func WithStateListener(listener StateListener) ManagerOption {
	return func(m *Manager) error {
		if listener == nil {
			return ErrNilStateListener
		}
		m.listeners = append(m.listeners, listener)

		return nil
	}
}

// WithClock replaces time.Now for LastSyncAt.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) error {
		if clock == nil {
			return ErrNilClock
		}
		m.clock = clock

		return nil
	}
}
