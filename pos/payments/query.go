package payments

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

const (
	queryTypeStatus  = "PaymentStatus"
	queryTypeSummary = "PaymentSummary"

	// CacheKindStatus is the cache kind of per-ticket payment states.
	CacheKindStatus cache.Kind = "payments.status"
	// CacheKindSummary is the cache kind of payment summaries over a range.
	CacheKindSummary cache.Kind = "payments.summary"
)

// StatusQuery represents the intent to read the payment state of one ticket.
type StatusQuery struct {
	TicketID core.TicketIDString
}

// BuildStatusQuery creates a new StatusQuery.
func BuildStatusQuery(ticketID core.TicketIDString) StatusQuery {
	return StatusQuery{TicketID: ticketID}
}

func (q StatusQuery) QueryType() string {
	return queryTypeStatus
}

func (q StatusQuery) cacheKey() cache.Key {
	return cache.AggregateKey(CacheKindStatus, q.TicketID)
}

// SummaryQuery represents the intent to summarize payments with From <= at <= Until.
type SummaryQuery struct {
	From  time.Time
	Until time.Time
}

// BuildSummaryQuery creates a new SummaryQuery.
func BuildSummaryQuery(from, until time.Time) SummaryQuery {
	return SummaryQuery{From: from, Until: until}
}

func (q SummaryQuery) QueryType() string {
	return queryTypeSummary
}

func (q SummaryQuery) cacheKey() cache.Key {
	return cache.RangeKey(CacheKindSummary, q.From, q.Until, "")
}

// HandledEventTypes lists the event types the payment projections fold.
func HandledEventTypes() []string {
	return []string{
		core.PaymentInitiatedEventType,
		core.PaymentSucceededEventType,
		core.PaymentFailedEventType,
	}
}
