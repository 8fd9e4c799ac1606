package sales

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

// Summary aggregates the sales of a range.
type Summary struct {
	From    time.Time
	Until   time.Time
	Revenue core.Money
	// Orders counts distinct tickets.
	Orders            int
	Items             int64
	AverageOrderValue core.Money
}

// ItemSales is the ranked performance of one menu item.
type ItemSales struct {
	ItemID   core.ItemIDString
	Name     string
	Quantity int64
	Revenue  core.Money
}

// HourBucket holds the sales of one local clock hour.
type HourBucket struct {
	Hour    int
	Revenue core.Money
	Orders  int
	Items   int64
}

// HourlySales breaks a business date down into 24 buckets, index = local hour.
type HourlySales struct {
	BusinessDate eventstore.BusinessDate
	Hours        [24]HourBucket
}
