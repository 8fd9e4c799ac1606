// Package memoryengine provides a volatile storage medium for the event log, used in tests and demos.
package memoryengine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

var ErrSeqCollision = errors.New("sequence number is already taken")

// PersistHook runs before an event is stored; a non-nil error rejects the write.
type PersistHook func(ctx context.Context, event eventstore.Event) error

// Engine keeps events and sync cursors in memory. It is safe for concurrent use.
type Engine struct {
	mu          sync.RWMutex
	events      eventstore.Events
	ids         map[uuid.UUID]struct{}
	seqs        map[eventstore.SequenceNumber]struct{}
	cursors     map[string]eventstore.Cursor
	persistHook PersistHook
}

// Option defines a functional option for configuring Engine.
type Option func(*Engine)

// WithPersistHook installs a hook, e.g. to simulate storage failures.
func WithPersistHook(hook PersistHook) Option {
	return func(e *Engine) {
		e.persistHook = hook
	}
}

// WithEvents preloads the engine, e.g. to simulate a restart with an existing log.
func WithEvents(events eventstore.Events) Option {
	return func(e *Engine) {
		for _, event := range events {
			e.events = append(e.events, event.Clone())
			e.ids[event.ID] = struct{}{}
			e.seqs[event.Seq] = struct{}{}
		}
	}
}

func New(options ...Option) *Engine {
	e := &Engine{
		ids:     make(map[uuid.UUID]struct{}),
		seqs:    make(map[eventstore.SequenceNumber]struct{}),
		cursors: make(map[string]eventstore.Cursor),
	}

	for _, option := range options {
		option(e)
	}

	return e
}

func (e *Engine) Persist(ctx context.Context, event eventstore.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.persistHook != nil {
		if err := e.persistHook(ctx, event); err != nil {
			return err
		}
	}

	if _, exists := e.ids[event.ID]; exists {
		return fmt.Errorf("%w: %s", eventstore.ErrDuplicateEventID, event.ID)
	}

	if _, exists := e.seqs[event.Seq]; exists {
		return fmt.Errorf("%w: %d", ErrSeqCollision, event.Seq)
	}

	e.events = append(e.events, event.Clone())
	e.ids[event.ID] = struct{}{}
	e.seqs[event.Seq] = struct{}{}

	return nil
}

func (e *Engine) LoadAll(ctx context.Context) (eventstore.Events, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	events := make(eventstore.Events, len(e.events))
	for i, event := range e.events {
		events[i] = event.Clone()
	}
	slices.SortStableFunc(events, func(a, b eventstore.Event) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return a.At.Compare(b.At)
		}
	})

	return events, nil
}

// Len returns the number of stored events.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.events)
}

func (e *Engine) LoadCursor(_ context.Context, remoteKey string) (eventstore.Cursor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.cursors[remoteKey], nil
}

func (e *Engine) SaveCursor(_ context.Context, remoteKey string, cursor eventstore.Cursor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cursors[remoteKey] = cursor

	return nil
}

func (e *Engine) Close() error {
	return nil
}
