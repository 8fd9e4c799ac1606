package reporting

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/payments"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/sales"
)

// Report is the end-of-day report of one business date.
type Report struct {
	ReportNumber int64
	BusinessDate eventstore.BusinessDate
	From         time.Time
	Until        time.Time
	Sales        sales.Summary
	Payments     payments.Summary
	TopItems     []sales.ItemSales
	Hourly       sales.HourlySales
	Tax          TaxSummary
	Discounts    DiscountSummary
	// GeneratedAt is zero for previews.
	GeneratedAt time.Time
}

// TaxSummary is a placeholder until a tax ledger exists.
type TaxSummary struct {
	Net       core.Money
	Tax       core.Money
	Gross     core.Money
	Estimated bool
}

// DiscountSummary is a placeholder until discounts are recorded as events.
type DiscountSummary struct {
	Total     core.Money
	Count     int
	Estimated bool
}
