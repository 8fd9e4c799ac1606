package eventstore

import (
	"errors"
)

// ErrValidation is the umbrella error for structurally invalid events; it is always joined with a specific cause.
var ErrValidation = errors.New("event validation failed")

var ErrNilEventID = errors.New("event id is empty")
var ErrEmptyEventType = errors.New("event type is empty")
var ErrEmptyAggregateID = errors.New("aggregate id is empty")
var ErrEmptyAggregateType = errors.New("aggregate type is empty")
var ErrZeroOccurredAt = errors.New("event timestamp is zero")
var ErrInvalidPayloadJSON = errors.New("payload json is not a valid json object")
var ErrDuplicateEventID = errors.New("event id was already appended")

// ErrPersistence signals that the storage medium rejected a write. The event is NOT appended.
var ErrPersistence = errors.New("event could not be persisted")

// ErrIndexing is non-fatal: only the affected index entry is skipped.
var ErrIndexing = errors.New("event could not be indexed")

// ErrAggregateNotIndexed is returned by reads issued before the cold-start index rebuild has completed.
var ErrAggregateNotIndexed = errors.New("indexes are not built yet")

// ErrMissingDependency is returned by constructors that were not given a required collaborator.
var ErrMissingDependency = errors.New("required dependency is missing")

// SequenceNumber is the device-local position of an event in the log, starting at 1.
type SequenceNumber = uint64
