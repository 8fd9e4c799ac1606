package core

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// PaymentFailedEventType is the event type identifier.
const PaymentFailedEventType = "payment.failed"

// PaymentFailed represents a declined or aborted payment attempt.
type PaymentFailed struct {
	TicketID   TicketIDString  `json:"ticketId"`
	PaymentID  PaymentIDString `json:"paymentId"`
	Reason     string          `json:"reason"`
	OccurredAt OccurredAt      `json:"-"`
}

// BuildPaymentFailed creates a new PaymentFailed event.
func BuildPaymentFailed(ticketID TicketIDString, paymentID PaymentIDString, reason string, occurredAt time.Time) PaymentFailed {
	return PaymentFailed{
		TicketID:   ticketID,
		PaymentID:  paymentID,
		Reason:     reason,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e PaymentFailed) EventType() string {
	return PaymentFailedEventType
}

func (e PaymentFailed) AggregateRef() eventstore.Aggregate {
	return ticket(e.TicketID)
}

// HasOccurredAt returns when this event occurred.
func (e PaymentFailed) HasOccurredAt() time.Time {
	return e.OccurredAt
}
