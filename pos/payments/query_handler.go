package payments

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
)

// EventStore defines the read access the Engine needs.
type EventStore interface {
	EventsForAggregate(ctx context.Context, aggregateID string) (eventstore.Events, error)
	Query(ctx context.Context, filter eventstore.Filter) (eventstore.Events, error)
}

// Engine answers payment queries.
type Engine struct {
	store  EventStore
	config shell.EngineConfig
}

// NewEngine creates an Engine. It fails with eventstore.ErrMissingDependency without a store.
func NewEngine(store EventStore, options ...shell.Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: payments engine needs an event store", eventstore.ErrMissingDependency)
	}

	config, err := shell.BuildEngineConfig(options...)
	if err != nil {
		return nil, err
	}

	if config.Cache != nil {
		config.Cache.RegisterDependency(CacheKindStatus, HandledEventTypes()...)
		config.Cache.RegisterDependency(CacheKindSummary, HandledEventTypes()...)
	}

	return &Engine{store: store, config: config}, nil
}

// Status returns the payment status of a ticket; StatusNone if the ticket has no payment events.
func (e *Engine) Status(ctx context.Context, ticketID string) (Status, error) {
	payments, err := e.TicketPayments(ctx, ticketID)
	if err != nil {
		return "", err
	}

	return payments.Status, nil
}

// TicketPayments returns the payment state of a ticket including collected amounts.
func (e *Engine) TicketPayments(ctx context.Context, ticketID string) (TicketPayments, error) {
	query := BuildStatusQuery(ticketID)
	ctx, run := shell.StartQuery(ctx, e.config.Observer, query.QueryType())

	result, err := cache.GetOrCompute(ctx, e.config.Cache, query.cacheKey(), func(ctx context.Context) (TicketPayments, error) {
		events, err := e.store.EventsForAggregate(ctx, query.TicketID)
		if err != nil {
			return TicketPayments{}, err
		}

		history, decodeErr := shell.DomainEventsFrom(events)
		run.Undecodable(ctx, decodeErr)

		return ProjectTicketPayments(history, query), nil
	})
	if err != nil {
		return TicketPayments{}, run.Fail(ctx, err)
	}

	run.Succeed(ctx)

	return result, nil
}

// Summary summarizes the payment events with from <= at <= until.
func (e *Engine) Summary(ctx context.Context, from, until time.Time) (Summary, error) {
	query := BuildSummaryQuery(eventstore.NormalizeTime(from), eventstore.NormalizeTime(until))
	ctx, run := shell.StartQuery(ctx, e.config.Observer, query.QueryType())

	result, err := cache.GetOrCompute(ctx, e.config.Cache, query.cacheKey(), func(ctx context.Context) (Summary, error) {
		events, err := e.store.Query(ctx, BuildSummaryEventFilter(query))
		if err != nil {
			return Summary{}, err
		}

		history, decodeErr := shell.DomainEventsFrom(events)
		run.Undecodable(ctx, decodeErr)

		return ProjectSummary(history), nil
	})
	if err != nil {
		return Summary{}, run.Fail(ctx, err)
	}

	run.Succeed(ctx)

	// the cached map is shared
	result.ByMethod = maps.Clone(result.ByMethod)

	return result, nil
}
