package core

import (
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// DomainEvents is a slice of DomainEvent instances.
type DomainEvents = []DomainEvent

// DomainEvent represents a business event that has occurred at the point of sale.
type DomainEvent interface {
	// EventType returns the type tag, e.g. "sale.recorded".
	EventType() string

	// AggregateRef returns the business entity the event mutates.
	AggregateRef() eventstore.Aggregate

	// HasOccurredAt returns when this event occurred.
	HasOccurredAt() time.Time
}

// KnownEventTypes lists every event type tag of the domain.
func KnownEventTypes() []string {
	return []string{
		SaleRecordedEventType,
		PaymentInitiatedEventType,
		PaymentSucceededEventType,
		PaymentFailedEventType,
		LoyaltyAccruedEventType,
		LoyaltyRedeemedEventType,
		ReportGeneratedEventType,
	}
}
