package sales

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
)

// EventStore defines the read access the Engine needs.
type EventStore interface {
	Query(ctx context.Context, filter eventstore.Filter) (eventstore.Events, error)
	EventsForBusinessDate(ctx context.Context, date eventstore.BusinessDate) (eventstore.Events, error)
	Calendar() eventstore.BusinessCalendar
}

// Engine answers sales queries.
type Engine struct {
	store  EventStore
	config shell.EngineConfig
}

// NewEngine creates an Engine. It fails with eventstore.ErrMissingDependency without a store.
func NewEngine(store EventStore, options ...shell.Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: sales engine needs an event store", eventstore.ErrMissingDependency)
	}

	config, err := shell.BuildEngineConfig(options...)
	if err != nil {
		return nil, err
	}

	if config.Cache != nil {
		for _, kind := range []cache.Kind{CacheKindSummary, CacheKindTopItems, CacheKindHourly} {
			config.Cache.RegisterDependency(kind, HandledEventTypes()...)
		}
	}

	return &Engine{store: store, config: config}, nil
}

// Summary returns revenue, order count, item count and average order value for from <= at <= until.
func (e *Engine) Summary(ctx context.Context, from, until time.Time) (Summary, error) {
	query := BuildRangeQuery(from, until)
	key := cache.RangeKey(CacheKindSummary, query.From, query.Until, "")

	return handle(ctx, e, queryTypeSummary, key, func(ctx context.Context, run shell.QueryRun) (Summary, error) {
		events, err := e.store.Query(ctx, BuildEventFilter(query))
		if err != nil {
			return Summary{}, err
		}

		return ProjectSummary(decode(ctx, run, events), query), nil
	})
}

// TopItems returns the best-selling items for from <= at <= until, at most limit of them.
func (e *Engine) TopItems(ctx context.Context, from, until time.Time, limit int) ([]ItemSales, error) {
	query := BuildTopItemsQuery(from, until, limit)

	items, err := handle(ctx, e, queryTypeTopItems, query.cacheKey(), func(ctx context.Context, run shell.QueryRun) ([]ItemSales, error) {
		events, err := e.store.Query(ctx, BuildEventFilter(query.RangeQuery))
		if err != nil {
			return nil, err
		}

		return ProjectTopItems(decode(ctx, run, events), query), nil
	})

	// the cached slice is shared
	return slices.Clone(items), err
}

// HourlySales returns 24 hourly buckets for a business date.
func (e *Engine) HourlySales(ctx context.Context, date eventstore.BusinessDate) (HourlySales, error) {
	query := BuildHourlyQuery(date)
	calendar := e.store.Calendar()

	from, until, err := calendar.Bounds(date)
	if err != nil {
		return HourlySales{}, err
	}
	key := cache.RangeKey(CacheKindHourly, from, until, string(date))

	return handle(ctx, e, queryTypeHourly, key, func(ctx context.Context, run shell.QueryRun) (HourlySales, error) {
		events, err := e.store.EventsForBusinessDate(ctx, date)
		if err != nil {
			return HourlySales{}, err
		}

		return ProjectHourlySales(decode(ctx, run, events), query, calendar), nil
	})
}

func handle[T any](
	ctx context.Context,
	e *Engine,
	queryType string,
	key cache.Key,
	compute func(ctx context.Context, run shell.QueryRun) (T, error),
) (T, error) {

	ctx, run := shell.StartQuery(ctx, e.config.Observer, queryType)

	result, err := cache.GetOrCompute(ctx, e.config.Cache, key, func(ctx context.Context) (T, error) {
		return compute(ctx, run)
	})
	if err != nil {
		var zero T
		return zero, run.Fail(ctx, err)
	}

	run.Succeed(ctx)

	return result, nil
}

func decode(ctx context.Context, run shell.QueryRun, events eventstore.Events) core.DomainEvents {
	history, err := shell.DomainEventsFrom(events)
	run.Undecodable(ctx, err)

	return history
}
