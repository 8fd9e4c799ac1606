package eventstore

import (
	"slices"
	"time"
)

/***** Filter *****/

// Filter describes which events to read back from the log.
//
// All set criteria must match (AND). Within the event types, ANY type must match (OR).
// The time range is inclusive on both ends: OccurredFrom <= At <= OccurredUntil.
type Filter struct {
	eventTypes    []string
	aggregateID   string
	occurredFrom  time.Time
	occurredUntil time.Time
	seqHigherThan SequenceNumber
}

func (f Filter) EventTypes() []string {
	return f.eventTypes
}

func (f Filter) AggregateID() string {
	return f.aggregateID
}

func (f Filter) OccurredFrom() time.Time {
	return f.occurredFrom
}

func (f Filter) OccurredUntil() time.Time {
	return f.occurredUntil
}

func (f Filter) SequenceNumberHigherThan() SequenceNumber {
	return f.seqHigherThan
}

// HasTimeRange reports whether at least one bound of the time range is set.
func (f Filter) HasTimeRange() bool {
	return !f.occurredFrom.IsZero() || !f.occurredUntil.IsZero()
}

// Matches reports whether the event satisfies all criteria of the filter.
func (f Filter) Matches(event Event) bool {
	if len(f.eventTypes) > 0 {
		if _, found := slices.BinarySearch(f.eventTypes, event.Type); !found {
			return false
		}
	}

	if f.aggregateID != "" && event.Aggregate.ID != f.aggregateID {
		return false
	}

	if !f.occurredFrom.IsZero() && event.At.Before(f.occurredFrom) {
		return false
	}

	if !f.occurredUntil.IsZero() && event.At.After(f.occurredUntil) {
		return false
	}

	return event.Seq > f.seqHigherThan
}

/***** FilterBuilder *****/

// FilterBuilder builds a Filter. Every method returns a new builder, so partially built filters can be reused.
//
//	filter := BuildEventFilter().
//		AnyEventTypeOf("loyalty.accrued", "loyalty.redeemed").
//		ForAggregate("cust-1").
//		Finalize()
type FilterBuilder struct {
	filter Filter
}

// BuildEventFilter creates a FilterBuilder which must eventually be finalized with Finalize().
func BuildEventFilter() FilterBuilder {
	return FilterBuilder{}
}

// AnyEventTypeOf adds one or multiple event types expecting ANY of them to match.
//
// It sanitizes the input:
//   - removing empty event types ("")
//   - sorting the event types
//   - removing duplicate event types
func (fb FilterBuilder) AnyEventTypeOf(eventType string, eventTypes ...string) FilterBuilder {
	allEventTypes := append(slices.Clone(fb.filter.eventTypes), eventType)
	allEventTypes = append(allEventTypes, eventTypes...)
	allEventTypes = slices.DeleteFunc(allEventTypes, func(e string) bool { return e == "" })
	slices.Sort(allEventTypes)
	allEventTypes = slices.Compact(allEventTypes)

	fb.filter.eventTypes = slices.Clip(allEventTypes)

	return fb
}

// ForAggregate restricts the filter to the events of one aggregate.
func (fb FilterBuilder) ForAggregate(aggregateID string) FilterBuilder {
	fb.filter.aggregateID = aggregateID

	return fb
}

// OccurredFrom sets the inclusive lower bound of the time range.
func (fb FilterBuilder) OccurredFrom(from time.Time) FilterBuilder {
	fb.filter.occurredFrom = NormalizeTime(from)

	return fb
}

// OccurredUntil sets the inclusive upper bound of the time range.
func (fb FilterBuilder) OccurredUntil(until time.Time) FilterBuilder {
	fb.filter.occurredUntil = NormalizeTime(until)

	return fb
}

// OccurredBetween sets both bounds of the time range.
func (fb FilterBuilder) OccurredBetween(from, until time.Time) FilterBuilder {
	return fb.OccurredFrom(from).OccurredUntil(until)
}

// WithSequenceNumberHigherThan only matches events appended after the given sequence number.
func (fb FilterBuilder) WithSequenceNumberHigherThan(seq SequenceNumber) FilterBuilder {
	fb.filter.seqHigherThan = seq

	return fb
}

// Finalize returns the Filter.
func (fb FilterBuilder) Finalize() Filter {
	return fb.filter
}

// MatchingAnyEvent directly creates an empty filter.
func (fb FilterBuilder) MatchingAnyEvent() Filter {
	return Filter{}
}
