package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

// ErrMappingToEventFailed is returned when a domain event cannot be turned into a log event.
var ErrMappingToEventFailed = errors.New("mapping to event failed for domain event")

// EventFrom converts a DomainEvent into a new, not yet appended event with a fresh id.
func EventFrom(domainEvent core.DomainEvent) (eventstore.Event, error) {
	payloadJSON, err := jsoniter.ConfigFastest.Marshal(domainEvent)
	if err != nil {
		return eventstore.Event{}, errors.Join(ErrMappingToEventFailed, err)
	}

	event, err := eventstore.BuildEvent(
		domainEvent.EventType(),
		domainEvent.AggregateRef(),
		domainEvent.HasOccurredAt(),
		payloadJSON,
	)
	if err != nil {
		return eventstore.Event{}, errors.Join(ErrMappingToEventFailed, err)
	}

	return event, nil
}
