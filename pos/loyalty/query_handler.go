package loyalty

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
)

// EventStore defines the read access the Engine needs.
type EventStore interface {
	EventsForAggregate(ctx context.Context, aggregateID string) (eventstore.Events, error)
}

// Engine answers loyalty queries.
type Engine struct {
	store  EventStore
	config shell.EngineConfig
}

// NewEngine creates an Engine. It fails with eventstore.ErrMissingDependency without a store.
func NewEngine(store EventStore, options ...shell.Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: loyalty engine needs an event store", eventstore.ErrMissingDependency)
	}

	config, err := shell.BuildEngineConfig(options...)
	if err != nil {
		return nil, err
	}

	if config.Cache != nil {
		config.Cache.RegisterDependency(CacheKindBalance, HandledEventTypes()...)
	}

	return &Engine{store: store, config: config}, nil
}

// Balance returns the point balance of a customer, 0 for unknown customers.
func (e *Engine) Balance(ctx context.Context, customerID string) (int64, error) {
	account, err := e.Account(ctx, customerID)
	if err != nil {
		return 0, err
	}

	return account.Balance, nil
}

// Account returns the loyalty account of a customer.
func (e *Engine) Account(ctx context.Context, customerID string) (Account, error) {
	query := BuildQuery(customerID)
	ctx, run := shell.StartQuery(ctx, e.config.Observer, query.QueryType())

	account, err := cache.GetOrCompute(ctx, e.config.Cache, query.cacheKey(), func(ctx context.Context) (Account, error) {
		events, err := e.store.EventsForAggregate(ctx, query.CustomerID)
		if err != nil {
			return Account{}, err
		}

		history, decodeErr := shell.DomainEventsFrom(events)
		run.Undecodable(ctx, decodeErr)

		return ProjectAccount(history, query), nil
	})
	if err != nil {
		return Account{}, run.Fail(ctx, err)
	}

	run.Succeed(ctx)

	return account, nil
}
