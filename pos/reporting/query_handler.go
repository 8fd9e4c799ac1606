package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/payments"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/sales"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
)

// EventStore defines the event log access the Engine needs.
type EventStore interface {
	EventsByType(ctx context.Context, eventType string) (eventstore.Events, error)
	Append(ctx context.Context, event eventstore.Event) (eventstore.Event, error)
	Calendar() eventstore.BusinessCalendar
}

// SalesQueries is the part of the sales engine a report is composed of.
type SalesQueries interface {
	Summary(ctx context.Context, from, until time.Time) (sales.Summary, error)
	TopItems(ctx context.Context, from, until time.Time, limit int) ([]sales.ItemSales, error)
	HourlySales(ctx context.Context, date eventstore.BusinessDate) (sales.HourlySales, error)
}

// PaymentQueries is the part of the payments engine a report is composed of.
type PaymentQueries interface {
	Summary(ctx context.Context, from, until time.Time) (payments.Summary, error)
}

// Engine builds business date reports.
type Engine struct {
	store    EventStore
	sales    SalesQueries
	payments PaymentQueries
	config   shell.EngineConfig

	// serializes number assignment
	generateMu sync.Mutex
}

// NewEngine creates an Engine. All three collaborators are required.
func NewEngine(store EventStore, salesQueries SalesQueries, paymentQueries PaymentQueries, options ...shell.Option) (*Engine, error) {
	if store == nil || salesQueries == nil || paymentQueries == nil {
		return nil, fmt.Errorf("%w: reporting engine needs an event store, sales and payment queries",
			eventstore.ErrMissingDependency)
	}

	config, err := shell.BuildEngineConfig(options...)
	if err != nil {
		return nil, err
	}

	if config.Cache != nil {
		config.Cache.RegisterDependency(CacheKindLastReportNumber, HandledEventTypes()...)
	}

	return &Engine{store: store, sales: salesQueries, payments: paymentQueries, config: config}, nil
}

// BusinessDateReport previews the report of a business date under the next free report number.
func (e *Engine) BusinessDateReport(ctx context.Context, date eventstore.BusinessDate) (Report, error) {
	ctx, run := shell.StartQuery(ctx, e.config.Observer, queryTypeReport)

	report, err := e.compose(ctx, run, date)
	if err != nil {
		return Report{}, run.Fail(ctx, err)
	}

	run.Succeed(ctx)

	return report, nil
}

// GenerateReport assigns the next report number to the report of a business date by appending
// report.generated, and returns the numbered report.
func (e *Engine) GenerateReport(ctx context.Context, date eventstore.BusinessDate) (Report, error) {
	ctx, run := shell.StartQuery(ctx, e.config.Observer, queryTypeGenerate)

	e.generateMu.Lock()
	defer e.generateMu.Unlock()

	report, err := e.compose(ctx, run, date)
	if err != nil {
		return Report{}, run.Fail(ctx, err)
	}

	generated := core.BuildReportGenerated(report.ReportNumber, date, e.config.Clock())

	event, err := shell.EventFrom(generated)
	if err != nil {
		return Report{}, run.Fail(ctx, err)
	}

	if _, err = e.store.Append(ctx, event); err != nil {
		return Report{}, run.Fail(ctx, err)
	}

	report.GeneratedAt = generated.OccurredAt
	run.Succeed(ctx)

	return report, nil
}

func (e *Engine) compose(ctx context.Context, run shell.QueryRun, date eventstore.BusinessDate) (Report, error) {
	from, until, err := e.store.Calendar().Bounds(date)
	if err != nil {
		return Report{}, err
	}

	lastNumber, err := e.lastReportNumber(ctx, run)
	if err != nil {
		return Report{}, err
	}

	salesSummary, err := e.sales.Summary(ctx, from, until)
	if err != nil {
		return Report{}, err
	}

	paymentSummary, err := e.payments.Summary(ctx, from, until)
	if err != nil {
		return Report{}, err
	}

	topItems, err := e.sales.TopItems(ctx, from, until, DefaultTopItems)
	if err != nil {
		return Report{}, err
	}

	hourly, err := e.sales.HourlySales(ctx, date)
	if err != nil {
		return Report{}, err
	}

	return Report{
		ReportNumber: lastNumber + 1,
		BusinessDate: date,
		From:         from,
		Until:        until,
		Sales:        salesSummary,
		Payments:     paymentSummary,
		TopItems:     topItems,
		Hourly:       hourly,
		Tax:          EstimateTax(salesSummary),
		Discounts:    EstimateDiscounts(),
	}, nil
}

func (e *Engine) lastReportNumber(ctx context.Context, run shell.QueryRun) (int64, error) {
	return cache.GetOrCompute(ctx, e.config.Cache, lastReportNumberKey(), func(ctx context.Context) (int64, error) {
		events, err := e.store.EventsByType(ctx, core.ReportGeneratedEventType)
		if err != nil {
			return 0, err
		}

		history, decodeErr := shell.DomainEventsFrom(events)
		run.Undecodable(ctx, decodeErr)

		return ProjectLastReportNumber(history), nil
	})
}
