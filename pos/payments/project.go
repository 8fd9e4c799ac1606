package payments

import (
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

// ProjectTicketPayments folds the payment events of one ticket.
// This is a pure function; events of other tickets or other types are ignored.
func ProjectTicketPayments(history core.DomainEvents, query StatusQuery) TicketPayments {
	result := TicketPayments{TicketID: query.TicketID, Status: StatusNone, Collected: decimal.Zero}
	var presence statusPresence

	for _, event := range history {
		switch e := event.(type) {
		case core.PaymentInitiated:
			if e.TicketID == query.TicketID {
				presence.initiated = true
				result.Attempts++
			}

		case core.PaymentSucceeded:
			if e.TicketID == query.TicketID {
				presence.succeeded = true
				result.Collected = result.Collected.Add(e.Amount)
			}

		case core.PaymentFailed:
			if e.TicketID == query.TicketID {
				presence.failed = true
			}
		}
	}

	result.Status = presence.status()

	return result
}

// ProjectSummary folds all payment events of a range.
func ProjectSummary(history core.DomainEvents) Summary {
	summary := Summary{Collected: decimal.Zero, ByMethod: make(map[core.PaymentMethod]core.Money)}
	tickets := make(map[core.TicketIDString]*statusPresence)
	var order []core.TicketIDString
	methods := make(map[core.PaymentIDString]core.PaymentMethod)

	presenceOf := func(ticketID core.TicketIDString) *statusPresence {
		p, ok := tickets[ticketID]
		if !ok {
			p = &statusPresence{}
			tickets[ticketID] = p
			order = append(order, ticketID)
		}
		return p
	}

	for _, event := range history {
		switch e := event.(type) {
		case core.PaymentInitiated:
			presenceOf(e.TicketID).initiated = true
			methods[e.PaymentID] = e.Method

		case core.PaymentSucceeded:
			presenceOf(e.TicketID).succeeded = true
			summary.Collected = summary.Collected.Add(e.Amount)

			method, ok := methods[e.PaymentID]
			if !ok {
				method = MethodUnknown
			}
			summary.ByMethod[method] = summary.ByMethod[method].Add(e.Amount)

		case core.PaymentFailed:
			presenceOf(e.TicketID).failed = true
		}
	}

	for _, ticketID := range order {
		summary.Tickets++

		switch tickets[ticketID].status() {
		case StatusPaid:
			summary.Paid++
		case StatusFailed:
			summary.Failed++
		case StatusPending:
			summary.Pending++
		}
	}

	return summary
}

type statusPresence struct {
	initiated bool
	succeeded bool
	failed    bool
}

func (p statusPresence) status() Status {
	switch {
	case p.succeeded:
		return StatusPaid
	case p.failed:
		return StatusFailed
	case p.initiated:
		return StatusPending
	default:
		return StatusNone
	}
}

// BuildSummaryEventFilter creates the filter for the payment events of a summary range.
func BuildSummaryEventFilter(query SummaryQuery) eventstore.Filter {
	return eventstore.BuildEventFilter().
		AnyEventTypeOf(core.PaymentInitiatedEventType, core.PaymentSucceededEventType, core.PaymentFailedEventType).
		OccurredBetween(query.From, query.Until).
		Finalize()
}
