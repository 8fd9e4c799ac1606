package core

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

const (
	AggregateTypeTicket   = "ticket"
	AggregateTypeCustomer = "customer"
	AggregateTypeReport   = "report"
)

// TicketIDString identifies a ticket (an order at the till).
type TicketIDString = string

// CustomerIDString identifies a loyalty customer.
type CustomerIDString = string

// PaymentIDString identifies one payment attempt for a ticket.
type PaymentIDString = string

// ItemIDString identifies a menu item.
type ItemIDString = string

// Money is a decimal amount in the restaurant's currency.
type Money = decimal.Decimal

// OccurredAt represents when an event occurred.
type OccurredAt = time.Time

// ToOccurredAt converts a time to OccurredAt with the precision of the event log.
func ToOccurredAt(t time.Time) OccurredAt {
	return eventstore.NormalizeTime(t)
}

func ticket(id TicketIDString) eventstore.Aggregate {
	return eventstore.Aggregate{ID: id, Type: AggregateTypeTicket}
}

func customer(id CustomerIDString) eventstore.Aggregate {
	return eventstore.Aggregate{ID: id, Type: AggregateTypeCustomer}
}
