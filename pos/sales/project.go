package sales

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

const averageOrderValuePlaces = 2

// LatestSalePerTicket keeps the last sale.recorded event of each ticket, in order of first appearance.
// history must be chronological, which is how the time index returns it.
func LatestSalePerTicket(history core.DomainEvents) []core.SaleRecorded {
	positions := make(map[core.TicketIDString]int)
	var sales []core.SaleRecorded

	for _, event := range history {
		switch e := event.(type) {
		case core.SaleRecorded:
			if pos, seen := positions[e.TicketID]; seen {
				sales[pos] = e
				continue
			}
			positions[e.TicketID] = len(sales)
			sales = append(sales, e)
		}
	}

	return sales
}

// ProjectSummary folds the sales of a range into a Summary.
func ProjectSummary(history core.DomainEvents, query RangeQuery) Summary {
	summary := Summary{
		From:              query.From,
		Until:             query.Until,
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}

	for _, sale := range LatestSalePerTicket(history) {
		summary.Revenue = summary.Revenue.Add(sale.Total)
		summary.Orders++
		summary.Items += sale.ItemCount()
	}

	if summary.Orders > 0 {
		summary.AverageOrderValue = summary.Revenue.
			DivRound(decimal.NewFromInt(int64(summary.Orders)), averageOrderValuePlaces)
	}

	return summary
}

// ProjectTopItems ranks the items of a range by quantity, then revenue.
// Ties keep the order in which items first appeared.
func ProjectTopItems(history core.DomainEvents, query TopItemsQuery) []ItemSales {
	positions := make(map[core.ItemIDString]int)
	items := make([]ItemSales, 0)

	for _, sale := range LatestSalePerTicket(history) {
		for _, line := range sale.Lines {
			pos, seen := positions[line.ItemID]
			if !seen {
				pos = len(items)
				positions[line.ItemID] = pos
				items = append(items, ItemSales{ItemID: line.ItemID, Name: line.Name, Revenue: decimal.Zero})
			}

			items[pos].Quantity += line.Quantity
			items[pos].Revenue = items[pos].Revenue.Add(line.Amount())
		}
	}

	slices.SortStableFunc(items, func(a, b ItemSales) int {
		if a.Quantity != b.Quantity {
			if a.Quantity > b.Quantity {
				return -1
			}
			return 1
		}

		return b.Revenue.Cmp(a.Revenue)
	})

	if query.Limit > 0 && len(items) > query.Limit {
		items = items[:query.Limit]
	}

	return items
}

// ProjectHourlySales buckets the sales of a business date by local hour of the calendar.
func ProjectHourlySales(history core.DomainEvents, query HourlyQuery, calendar eventstore.BusinessCalendar) HourlySales {
	result := HourlySales{BusinessDate: query.BusinessDate}
	for hour := range result.Hours {
		result.Hours[hour] = HourBucket{Hour: hour, Revenue: decimal.Zero}
	}

	for _, sale := range LatestSalePerTicket(history) {
		bucket := &result.Hours[calendar.HourOf(sale.OccurredAt)]
		bucket.Revenue = bucket.Revenue.Add(sale.Total)
		bucket.Orders++
		bucket.Items += sale.ItemCount()
	}

	return result
}
