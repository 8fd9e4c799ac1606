package shell

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

var (
	// ErrMappingToDomainEventFailed is returned when domain event conversion fails.
	ErrMappingToDomainEventFailed = errors.New("mapping to domain event failed")

	// ErrMappingToDomainEventUnknownEventType is returned for unrecognized event types.
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

// DomainEventsFrom converts events to domain events.
// Events which cannot be decoded are left out; their errors are joined into the returned error,
// so callers can fold over the decodable rest and still report the broken ones.
func DomainEventsFrom(events eventstore.Events) (core.DomainEvents, error) {
	domainEvents := make(core.DomainEvents, 0, len(events))
	var errs []error

	for _, event := range events {
		domainEvent, err := DomainEventFrom(event)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s (%s): %w", event.ID, event.Type, err))
			continue
		}

		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, errors.Join(errs...)
}

// DomainEventFrom converts one event to its corresponding DomainEvent.
// Aggregate ids and timestamps are taken from the envelope, not from the payload.
func DomainEventFrom(event eventstore.Event) (core.DomainEvent, error) {
	switch event.Type {
	case core.SaleRecordedEventType:
		return decode(event, func(e *core.SaleRecorded) { e.TicketID, e.OccurredAt = event.Aggregate.ID, event.At })

	case core.PaymentInitiatedEventType:
		return decode(event, func(e *core.PaymentInitiated) { e.TicketID, e.OccurredAt = event.Aggregate.ID, event.At })

	case core.PaymentSucceededEventType:
		return decode(event, func(e *core.PaymentSucceeded) { e.TicketID, e.OccurredAt = event.Aggregate.ID, event.At })

	case core.PaymentFailedEventType:
		return decode(event, func(e *core.PaymentFailed) { e.TicketID, e.OccurredAt = event.Aggregate.ID, event.At })

	case core.LoyaltyAccruedEventType:
		return decode(event, func(e *core.LoyaltyAccrued) { e.CustomerID, e.OccurredAt = event.Aggregate.ID, event.At })

	case core.LoyaltyRedeemedEventType:
		return decode(event, func(e *core.LoyaltyRedeemed) { e.CustomerID, e.OccurredAt = event.Aggregate.ID, event.At })

	case core.ReportGeneratedEventType:
		return decode(event, func(e *core.ReportGenerated) { e.OccurredAt = event.At })
	}

	return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
}

func decode[T core.DomainEvent](event eventstore.Event, fromEnvelope func(*T)) (core.DomainEvent, error) {
	var payload T

	if err := jsoniter.ConfigFastest.Unmarshal(event.PayloadJSON, &payload); err != nil {
		return nil, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	fromEnvelope(&payload)

	return payload, nil
}
