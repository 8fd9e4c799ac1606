package eventstore

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// Events is an alias type for a slice of Event.
type Events = []Event

// Aggregate identifies the business entity an Event mutates.
type Aggregate struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Event is an immutable fact stored in the log.
//
// It is built on scalars so that the log stays agnostic of the domain event types of the client code.
// While its properties are exported, it should only be constructed with the supplied factory methods:
//   - BuildEvent for new events
//   - RebuildEvent for events read back from storage or received from a remote
//
// Seq is zero until the log assigns it on Append. Origin names the device that created the event.
type Event struct {
	ID          uuid.UUID
	Type        string
	At          time.Time
	Aggregate   Aggregate
	PayloadJSON []byte
	Seq         SequenceNumber
	Origin      string
}

// BuildEvent is a factory method for new events.
//
// It assigns a fresh random id and normalizes the timestamp to UTC with millisecond precision.
// Returns ErrValidation joined with the specific cause if the input is structurally invalid.
func BuildEvent(eventType string, aggregate Aggregate, at time.Time, payloadJSON []byte) (Event, error) {
	return RebuildEvent(uuid.New(), eventType, aggregate, at, payloadJSON, 0, "")
}

// RebuildEvent is a factory method for events that already have an identity.
func RebuildEvent(
	id uuid.UUID,
	eventType string,
	aggregate Aggregate,
	at time.Time,
	payloadJSON []byte,
	seq SequenceNumber,
	origin string,
) (Event, error) {

	event := Event{
		ID:          id,
		Type:        eventType,
		At:          NormalizeTime(at),
		Aggregate:   aggregate,
		PayloadJSON: payloadJSON,
		Seq:         seq,
		Origin:      origin,
	}

	if err := event.Validate(); err != nil {
		return Event{}, err
	}

	return event, nil
}

// Validate checks that the event is structurally complete. Payload shape per type is validated at the boundary.
func (e Event) Validate() error {
	var causes []error

	if e.ID == uuid.Nil {
		causes = append(causes, ErrNilEventID)
	}

	if e.Type == "" {
		causes = append(causes, ErrEmptyEventType)
	}

	if e.Aggregate.ID == "" {
		causes = append(causes, ErrEmptyAggregateID)
	}

	if e.Aggregate.Type == "" {
		causes = append(causes, ErrEmptyAggregateType)
	}

	if e.At.IsZero() {
		causes = append(causes, ErrZeroOccurredAt)
	}

	if !isJSONObject(e.PayloadJSON) {
		causes = append(causes, ErrInvalidPayloadJSON)
	}

	if len(causes) == 0 {
		return nil
	}

	return errors.Join(append([]error{ErrValidation}, causes...)...)
}

// AtMillis returns the event timestamp as epoch milliseconds, the wire and storage format.
func (e Event) AtMillis() int64 {
	return e.At.UnixMilli()
}

// Clone returns a copy of the event which does not share the payload bytes.
func (e Event) Clone() Event {
	e.PayloadJSON = bytes.Clone(e.PayloadJSON)
	return e
}

// WithSeq returns a copy of the event carrying the given sequence number.
func (e Event) WithSeq(seq SequenceNumber) Event {
	e.Seq = seq
	return e
}

// WithOrigin returns a copy of the event carrying the given origin device id.
func (e Event) WithOrigin(origin string) Event {
	e.Origin = origin
	return e
}

// NormalizeTime converts t to UTC and truncates it to millisecond precision.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}

	return t.UTC().Truncate(time.Millisecond)
}

// TimeFromMillis converts epoch milliseconds to a UTC time.
func TimeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isJSONObject(payloadJSON []byte) bool {
	trimmed := bytes.TrimSpace(payloadJSON)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	return jsoniter.ConfigFastest.Valid(trimmed)
}
