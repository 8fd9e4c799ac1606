package core

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// SaleRecordedEventType is the event type identifier.
const SaleRecordedEventType = "sale.recorded"

// SaleLine is one ordered item of a ticket.
type SaleLine struct {
	ItemID    ItemIDString `json:"itemId"`
	Name      string       `json:"name"`
	Quantity  int64        `json:"qty"`
	UnitPrice Money        `json:"unitPrice"`
}

// Amount returns quantity times unit price.
func (l SaleLine) Amount() Money {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// SaleRecorded represents a closed ticket with its ordered items.
type SaleRecorded struct {
	TicketID   TicketIDString `json:"ticketId"`
	Lines      []SaleLine     `json:"lines"`
	Total      Money          `json:"total"`
	OccurredAt OccurredAt     `json:"-"`
}

// BuildSaleRecorded creates a new SaleRecorded event, the total is the sum of the line amounts.
func BuildSaleRecorded(ticketID TicketIDString, lines []SaleLine, occurredAt time.Time) SaleRecorded {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount())
	}

	return SaleRecorded{
		TicketID:   ticketID,
		Lines:      lines,
		Total:      total,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e SaleRecorded) EventType() string {
	return SaleRecordedEventType
}

func (e SaleRecorded) AggregateRef() eventstore.Aggregate {
	return ticket(e.TicketID)
}

// HasOccurredAt returns when this event occurred.
func (e SaleRecorded) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ItemCount returns the total quantity over all lines.
func (e SaleRecorded) ItemCount() int64 {
	var count int64
	for _, line := range e.Lines {
		count += line.Quantity
	}

	return count
}
