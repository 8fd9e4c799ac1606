package core

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// PaymentSucceededEventType is the event type identifier.
const PaymentSucceededEventType = "payment.succeeded"

// PaymentSucceeded represents a payment that was captured.
type PaymentSucceeded struct {
	TicketID   TicketIDString  `json:"ticketId"`
	PaymentID  PaymentIDString `json:"paymentId"`
	Amount     Money           `json:"amount"`
	OccurredAt OccurredAt      `json:"-"`
}

// BuildPaymentSucceeded creates a new PaymentSucceeded event.
func BuildPaymentSucceeded(ticketID TicketIDString, paymentID PaymentIDString, amount Money, occurredAt time.Time) PaymentSucceeded {
	return PaymentSucceeded{
		TicketID:   ticketID,
		PaymentID:  paymentID,
		Amount:     amount,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e PaymentSucceeded) EventType() string {
	return PaymentSucceededEventType
}

func (e PaymentSucceeded) AggregateRef() eventstore.Aggregate {
	return ticket(e.TicketID)
}

// HasOccurredAt returns when this event occurred.
func (e PaymentSucceeded) HasOccurredAt() time.Time {
	return e.OccurredAt
}
