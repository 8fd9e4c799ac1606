package core

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// PaymentInitiatedEventType is the event type identifier.
const PaymentInitiatedEventType = "payment.initiated"

// PaymentMethod names how a ticket is paid.
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodVoucher PaymentMethod = "voucher"
)

// PaymentInitiated represents a payment attempt that was started for a ticket.
type PaymentInitiated struct {
	TicketID   TicketIDString  `json:"ticketId"`
	PaymentID  PaymentIDString `json:"paymentId"`
	Method     PaymentMethod   `json:"method"`
	Amount     Money           `json:"amount"`
	OccurredAt OccurredAt      `json:"-"`
}

// BuildPaymentInitiated creates a new PaymentInitiated event.
func BuildPaymentInitiated(
	ticketID TicketIDString,
	paymentID PaymentIDString,
	method PaymentMethod,
	amount Money,
	occurredAt time.Time,
) PaymentInitiated {

	return PaymentInitiated{
		TicketID:   ticketID,
		PaymentID:  paymentID,
		Method:     method,
		Amount:     amount,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e PaymentInitiated) EventType() string {
	return PaymentInitiatedEventType
}

func (e PaymentInitiated) AggregateRef() eventstore.Aggregate {
	return ticket(e.TicketID)
}

// HasOccurredAt returns when this event occurred.
func (e PaymentInitiated) HasOccurredAt() time.Time {
	return e.OccurredAt
}
