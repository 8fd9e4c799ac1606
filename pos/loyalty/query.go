package loyalty

import (
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

const (
	queryTypeBalance = "LoyaltyBalance"

	// CacheKindBalance is the cache kind of per-customer accounts.
	CacheKindBalance cache.Kind = "loyalty.balance"
)

// Query represents the intent to read the loyalty account of a customer.
type Query struct {
	CustomerID core.CustomerIDString
}

// BuildQuery creates a new Query with the provided customer ID.
func BuildQuery(customerID core.CustomerIDString) Query {
	return Query{CustomerID: customerID}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryTypeBalance
}

func (q Query) cacheKey() cache.Key {
	return cache.AggregateKey(CacheKindBalance, q.CustomerID)
}

// HandledEventTypes lists the event types the loyalty projections fold.
func HandledEventTypes() []string {
	return []string{core.LoyaltyAccruedEventType, core.LoyaltyRedeemedEventType}
}
