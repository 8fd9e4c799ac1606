package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/sales"
)

// ProjectLastReportNumber returns the highest report number in history, 0 if there is none.
func ProjectLastReportNumber(history core.DomainEvents) int64 {
	var last int64

	for _, event := range history {
		switch e := event.(type) {
		case core.ReportGenerated:
			last = max(last, e.ReportNumber)
		}
	}

	return last
}

// EstimateTax fills the tax section from gross revenue without a tax ledger: all revenue is
// reported as gross, net equals gross and tax is zero.
func EstimateTax(summary sales.Summary) TaxSummary {
	return TaxSummary{
		Net:       summary.Revenue,
		Tax:       decimal.Zero,
		Gross:     summary.Revenue,
		Estimated: true,
	}
}

// EstimateDiscounts returns an empty discount section.
func EstimateDiscounts() DiscountSummary {
	return DiscountSummary{Total: decimal.Zero, Estimated: true}
}
