package helper

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/eventlog"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/index"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
)

// Appender is the write side of the event log.
type Appender interface {
	Append(ctx context.Context, event eventstore.Event) (eventstore.Event, error)
}

// GivenOpenStore creates an opened, memory-backed event log with a query cache attached.
func GivenOpenStore(t testing.TB, options ...eventlog.Option) (*eventlog.Store, *cache.Cache) {
	t.Helper()

	c, err := cache.New(cache.DefaultSize)
	require.NoError(t, err)

	return GivenOpenStoreWithCache(t, c, options...), c
}

// GivenOpenStoreWithCache creates an opened, memory-backed event log invalidating the given cache.
func GivenOpenStoreWithCache(t testing.TB, c *cache.Cache, options ...eventlog.Option) *eventlog.Store {
	t.Helper()

	store, err := eventlog.NewStore(
		memoryengine.New(),
		index.New(eventstore.DefaultBusinessCalendar()),
		append([]eventlog.Option{eventlog.WithCache(c)}, options...)...,
	)
	require.NoError(t, err)
	require.NoError(t, store.Open(context.Background()))

	return store
}

// GivenAppended appends the events in order and returns them as stored.
func GivenAppended(t testing.TB, store Appender, events ...eventstore.Event) eventstore.Events {
	t.Helper()

	stored := make(eventstore.Events, 0, len(events))
	for _, event := range events {
		appended, err := store.Append(context.Background(), event)
		require.NoError(t, err)
		stored = append(stored, appended)
	}

	return stored
}

// GivenEvent turns a domain event into a log event with a fresh id.
func GivenEvent(t testing.TB, domainEvent core.DomainEvent) eventstore.Event {
	t.Helper()

	event, err := shell.EventFrom(domainEvent)
	require.NoError(t, err)

	return event
}

// Money parses a decimal literal like "12.50".
func Money(t testing.TB, amount string) core.Money {
	t.Helper()

	money, err := decimal.NewFromString(amount)
	require.NoError(t, err)

	return money
}

// Line builds a sale line.
func Line(t testing.TB, itemID, name string, quantity int64, unitPrice string) core.SaleLine {
	t.Helper()

	return core.SaleLine{ItemID: itemID, Name: name, Quantity: quantity, UnitPrice: Money(t, unitPrice)}
}

// GivenSale builds a sale.recorded event for a ticket.
func GivenSale(t testing.TB, ticketID string, at time.Time, lines ...core.SaleLine) eventstore.Event {
	t.Helper()

	return GivenEvent(t, core.BuildSaleRecorded(ticketID, lines, at))
}

// GivenSaleWithTotal builds a sale.recorded event with a single line worth total.
func GivenSaleWithTotal(t testing.TB, ticketID string, at time.Time, total string) eventstore.Event {
	t.Helper()

	return GivenSale(t, ticketID, at, Line(t, "item-"+ticketID, "Item "+ticketID, 1, total))
}

func GivenLoyaltyAccrued(t testing.TB, customerID string, points int64, at time.Time) eventstore.Event {
	t.Helper()

	return GivenEvent(t, core.BuildLoyaltyAccrued(customerID, points, "", at))
}

func GivenLoyaltyRedeemed(t testing.TB, customerID string, points int64, at time.Time) eventstore.Event {
	t.Helper()

	return GivenEvent(t, core.BuildLoyaltyRedeemed(customerID, points, "", at))
}

func GivenPaymentInitiated(t testing.TB, ticketID, paymentID, amount string, at time.Time) eventstore.Event {
	t.Helper()

	return GivenEvent(t, core.BuildPaymentInitiated(ticketID, paymentID, core.PaymentMethodCard, Money(t, amount), at))
}

func GivenPaymentSucceeded(t testing.TB, ticketID, paymentID, amount string, at time.Time) eventstore.Event {
	t.Helper()

	return GivenEvent(t, core.BuildPaymentSucceeded(ticketID, paymentID, Money(t, amount), at))
}

func GivenPaymentFailed(t testing.TB, ticketID, paymentID string, at time.Time) eventstore.Event {
	t.Helper()

	return GivenEvent(t, core.BuildPaymentFailed(ticketID, paymentID, "card declined", at))
}
