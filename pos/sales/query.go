package sales

import (
	"strconv"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

const (
	queryTypeSummary  = "SalesSummary"
	queryTypeTopItems = "TopItems"
	queryTypeHourly   = "HourlySales"

	CacheKindSummary  cache.Kind = "sales.summary"
	CacheKindTopItems cache.Kind = "sales.top_items"
	CacheKindHourly   cache.Kind = "sales.hourly"
)

// RangeQuery represents the intent to fold the sales with From <= at <= Until.
type RangeQuery struct {
	From  time.Time
	Until time.Time
}

// BuildRangeQuery creates a new RangeQuery with millisecond bounds.
func BuildRangeQuery(from, until time.Time) RangeQuery {
	return RangeQuery{From: eventstore.NormalizeTime(from), Until: eventstore.NormalizeTime(until)}
}

// TopItemsQuery ranks items within a range. A Limit <= 0 returns all items.
type TopItemsQuery struct {
	RangeQuery
	Limit int
}

// BuildTopItemsQuery creates a new TopItemsQuery.
func BuildTopItemsQuery(from, until time.Time, limit int) TopItemsQuery {
	return TopItemsQuery{RangeQuery: BuildRangeQuery(from, until), Limit: limit}
}

func (q TopItemsQuery) cacheKey() cache.Key {
	return cache.RangeKey(CacheKindTopItems, q.From, q.Until, strconv.Itoa(q.Limit))
}

// HourlyQuery represents the intent to break one business date down by hour.
type HourlyQuery struct {
	BusinessDate eventstore.BusinessDate
}

// BuildHourlyQuery creates a new HourlyQuery.
func BuildHourlyQuery(date eventstore.BusinessDate) HourlyQuery {
	return HourlyQuery{BusinessDate: date}
}

// HandledEventTypes lists the event types the sales projections fold.
func HandledEventTypes() []string {
	return []string{core.SaleRecordedEventType}
}

// BuildEventFilter creates the filter for the sales of a range.
func BuildEventFilter(query RangeQuery) eventstore.Filter {
	return eventstore.BuildEventFilter().
		AnyEventTypeOf(core.SaleRecordedEventType).
		OccurredBetween(query.From, query.Until).
		Finalize()
}
