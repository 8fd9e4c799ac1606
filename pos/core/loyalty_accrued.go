package core

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// LoyaltyAccruedEventType is the event type identifier.
const LoyaltyAccruedEventType = "loyalty.accrued"

// LoyaltyAccrued represents points credited to a customer, usually for a ticket.
type LoyaltyAccrued struct {
	CustomerID CustomerIDString `json:"customerId"`
	Points     int64            `json:"points"`
	TicketID   TicketIDString   `json:"ticketId,omitempty"`
	OccurredAt OccurredAt       `json:"-"`
}

// BuildLoyaltyAccrued creates a new LoyaltyAccrued event. ticketID may be empty.
func BuildLoyaltyAccrued(customerID CustomerIDString, points int64, ticketID TicketIDString, occurredAt time.Time) LoyaltyAccrued {
	return LoyaltyAccrued{
		CustomerID: customerID,
		Points:     points,
		TicketID:   ticketID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e LoyaltyAccrued) EventType() string {
	return LoyaltyAccruedEventType
}

func (e LoyaltyAccrued) AggregateRef() eventstore.Aggregate {
	return customer(e.CustomerID)
}

// HasOccurredAt returns when this event occurred.
func (e LoyaltyAccrued) HasOccurredAt() time.Time {
	return e.OccurredAt
}
