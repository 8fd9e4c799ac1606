package loyalty

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

// Account is the projected loyalty state of one customer.
type Account struct {
	CustomerID core.CustomerIDString
	// Balance is Accrued minus Redeemed and may be negative.
	Balance      int64
	Accrued      int64
	Redeemed     int64
	Transactions int
	LastActivity time.Time
}
