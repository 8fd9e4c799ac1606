package index

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

var ErrMissingSequenceNumber = errors.New("event has no sequence number")

// position is the offset of an event in Index.events.
type position = int

// Index holds the derived lookup structures. It is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	calendar eventstore.BusinessCalendar

	events      []eventstore.Event
	byID        map[uuid.UUID]position
	byAggregate map[string][]position
	byType      map[string][]position
	byDate      map[eventstore.BusinessDate][]position
	timeline    []position

	ready   bool
	visited atomic.Uint64
}

// Stats exposes instrumentation counters.
type Stats struct {
	// Visited counts the events touched by read operations since the index was created.
	Visited uint64
	Indexed int
}

// New creates an empty index which is not ready until Rebuild has run.
func New(calendar eventstore.BusinessCalendar) *Index {
	idx := &Index{calendar: calendar}
	idx.reset()

	return idx
}

func (idx *Index) reset() {
	idx.events = nil
	idx.byID = make(map[uuid.UUID]position)
	idx.byAggregate = make(map[string][]position)
	idx.byType = make(map[string][]position)
	idx.byDate = make(map[eventstore.BusinessDate][]position)
	idx.timeline = nil
}

func (idx *Index) Calendar() eventstore.BusinessCalendar {
	return idx.calendar
}

// Rebuild discards all index contents and replays the given events, which must be in seq order.
// Events that cannot be indexed are skipped; the returned error joins all of their causes.
// The index is ready afterwards, even if some events were skipped.
func (idx *Index) Rebuild(events eventstore.Events) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.reset()
	idx.events = make([]eventstore.Event, 0, len(events))

	var indexErrs []error
	for _, event := range events {
		if err := idx.add(event); err != nil {
			indexErrs = append(indexErrs, err)
		}
	}

	idx.ready = true

	return errors.Join(indexErrs...)
}

// Add indexes one newly appended event.
func (idx *Index) Add(event eventstore.Event) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return idx.add(event)
}

func (idx *Index) add(event eventstore.Event) error {
	if err := event.Validate(); err != nil {
		return errors.Join(eventstore.ErrIndexing, fmt.Errorf("event %s: %w", event.ID, err))
	}

	if event.Seq == 0 {
		return errors.Join(eventstore.ErrIndexing, fmt.Errorf("event %s: %w", event.ID, ErrMissingSequenceNumber))
	}

	if _, exists := idx.byID[event.ID]; exists {
		return errors.Join(eventstore.ErrIndexing, fmt.Errorf("event %s: %w", event.ID, eventstore.ErrDuplicateEventID))
	}

	pos := len(idx.events)
	idx.events = append(idx.events, event.Clone())
	idx.byID[event.ID] = pos
	idx.byType[event.Type] = append(idx.byType[event.Type], pos)

	date := idx.calendar.DateOf(event.At)
	idx.byAggregate[event.Aggregate.ID] = idx.insertChronologically(idx.byAggregate[event.Aggregate.ID], pos)
	idx.byDate[date] = idx.insertChronologically(idx.byDate[date], pos)
	idx.timeline = idx.insertChronologically(idx.timeline, pos)

	return nil
}

// insertChronologically keeps positions sorted by (At, Seq). In-order timestamps take the append
// fast path; late arrivals (replicated events) are placed with a binary search.
func (idx *Index) insertChronologically(positions []position, pos position) []position {
	n := len(positions)
	if n == 0 || !idx.before(pos, positions[n-1]) {
		return append(positions, pos)
	}

	at, _ := slices.BinarySearchFunc(positions, pos, func(existing, target position) int {
		if idx.before(existing, target) {
			return -1
		}
		return 1
	})

	return slices.Insert(positions, at, pos)
}

func (idx *Index) before(a, b position) bool {
	ea, eb := idx.events[a], idx.events[b]
	if !ea.At.Equal(eb.At) {
		return ea.At.Before(eb.At)
	}

	return ea.Seq < eb.Seq
}

func (idx *Index) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.ready
}

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Stats{Visited: idx.visited.Load(), Indexed: len(idx.events)}
}

// Len returns the number of indexed events.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.events)
}

// LastSeq returns the highest indexed sequence number.
func (idx *Index) LastSeq() eventstore.SequenceNumber {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.events) == 0 {
		return 0
	}

	return idx.events[len(idx.events)-1].Seq
}

// Contains reports whether an event with that id is indexed. It works before readiness too.
func (idx *Index) Contains(id uuid.UUID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, exists := idx.byID[id]

	return exists
}

// ByID returns one event by id in O(1).
func (idx *Index) ByID(id uuid.UUID) (eventstore.Event, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return eventstore.Event{}, false, eventstore.ErrAggregateNotIndexed
	}

	pos, exists := idx.byID[id]
	if !exists {
		return eventstore.Event{}, false, nil
	}

	idx.visited.Add(1)

	return idx.events[pos].Clone(), true, nil
}

// ForAggregate returns the events of one aggregate ordered by (At, Seq).
func (idx *Index) ForAggregate(aggregateID string) (eventstore.Events, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, eventstore.ErrAggregateNotIndexed
	}

	return idx.collect(idx.byAggregate[aggregateID]), nil
}

// ByType returns the events of one type in seq order.
func (idx *Index) ByType(eventType string) (eventstore.Events, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, eventstore.ErrAggregateNotIndexed
	}

	return idx.collect(idx.byType[eventType]), nil
}

// ForBusinessDate returns the events of one business date ordered by (At, Seq).
func (idx *Index) ForBusinessDate(date eventstore.BusinessDate) (eventstore.Events, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, eventstore.ErrAggregateNotIndexed
	}

	return idx.collect(idx.byDate[date]), nil
}

// InRange returns the events with from <= At <= until in O(log n + k).
// A zero bound is open.
func (idx *Index) InRange(from, until time.Time) (eventstore.Events, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, eventstore.ErrAggregateNotIndexed
	}

	return idx.collect(idx.rangeOf(from, until)), nil
}

func (idx *Index) rangeOf(from, until time.Time) []position {
	lo := 0
	if !from.IsZero() {
		lo, _ = slices.BinarySearchFunc(idx.timeline, from, func(pos position, target time.Time) int {
			if idx.events[pos].At.Before(target) {
				return -1
			}
			return 1
		})
	}

	hi := len(idx.timeline)
	if !until.IsZero() {
		hi, _ = slices.BinarySearchFunc(idx.timeline, until, func(pos position, target time.Time) int {
			if idx.events[pos].At.After(target) {
				return 1
			}
			return -1
		})
	}

	if lo >= hi {
		return nil
	}

	return idx.timeline[lo:hi]
}

// AfterSeq returns the events with Seq > seq in seq order, located with a binary search.
func (idx *Index) AfterSeq(seq eventstore.SequenceNumber) (eventstore.Events, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, eventstore.ErrAggregateNotIndexed
	}

	start, _ := slices.BinarySearchFunc(idx.events, seq, func(event eventstore.Event, target eventstore.SequenceNumber) int {
		if event.Seq <= target {
			return -1
		}
		return 1
	})

	result := cloneAll(idx.events[start:])
	idx.visited.Add(uint64(len(result)))

	return result, nil
}

// Query picks the most selective index for the filter and applies the remaining criteria to the candidates.
// Results are in seq order unless the filter names an aggregate or a time range, which are chronological.
func (idx *Index) Query(filter eventstore.Filter) (eventstore.Events, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, eventstore.ErrAggregateNotIndexed
	}

	var candidates []position

	switch {
	case filter.AggregateID() != "":
		candidates = idx.byAggregate[filter.AggregateID()]
	case filter.HasTimeRange():
		candidates = idx.rangeOf(filter.OccurredFrom(), filter.OccurredUntil())
	case len(filter.EventTypes()) == 1:
		candidates = idx.byType[filter.EventTypes()[0]]
	case len(filter.EventTypes()) > 1:
		for _, eventType := range filter.EventTypes() {
			candidates = append(candidates, idx.byType[eventType]...)
		}
		slices.Sort(candidates)
	default:
		candidates = make([]position, len(idx.events))
		for i := range candidates {
			candidates[i] = i
		}
	}

	result := make(eventstore.Events, 0, len(candidates))
	for _, pos := range candidates {
		if event := idx.events[pos]; filter.Matches(event) {
			result = append(result, event.Clone())
		}
	}
	idx.visited.Add(uint64(len(candidates)))

	return result, nil
}

func (idx *Index) collect(positions []position) eventstore.Events {
	result := make(eventstore.Events, len(positions))
	for i, pos := range positions {
		result[i] = idx.events[pos].Clone()
	}
	idx.visited.Add(uint64(len(positions)))

	return result
}

// cloneAll copies events so that callers never share payload bytes with the index.
func cloneAll(events []eventstore.Event) eventstore.Events {
	result := make(eventstore.Events, len(events))
	for i, event := range events {
		result[i] = event.Clone()
	}

	return result
}
