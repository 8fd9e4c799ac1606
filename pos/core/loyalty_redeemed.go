package core

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// LoyaltyRedeemedEventType is the event type identifier.
const LoyaltyRedeemedEventType = "loyalty.redeemed"

// LoyaltyRedeemed represents points a customer spent.
type LoyaltyRedeemed struct {
	CustomerID CustomerIDString `json:"customerId"`
	Points     int64            `json:"points"`
	TicketID   TicketIDString   `json:"ticketId,omitempty"`
	OccurredAt OccurredAt       `json:"-"`
}

// BuildLoyaltyRedeemed creates a new LoyaltyRedeemed event. ticketID may be empty.
func BuildLoyaltyRedeemed(customerID CustomerIDString, points int64, ticketID TicketIDString, occurredAt time.Time) LoyaltyRedeemed {
	return LoyaltyRedeemed{
		CustomerID: customerID,
		Points:     points,
		TicketID:   ticketID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e LoyaltyRedeemed) EventType() string {
	return LoyaltyRedeemedEventType
}

func (e LoyaltyRedeemed) AggregateRef() eventstore.Aggregate {
	return customer(e.CustomerID)
}

// HasOccurredAt returns when this event occurred.
func (e LoyaltyRedeemed) HasOccurredAt() time.Time {
	return e.OccurredAt
}
