package eventlog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/index"
)

const (
	defaultDeviceID = "local"

	metricAppendDuration = "eventlog_append_duration_seconds"
	metricAppends        = "eventlog_appends_total"
	metricIndexingErrors = "eventlog_indexing_errors_total"
	metricListenerErrors = "eventlog_listener_errors_total"
	metricEvents         = "eventlog_events"

	spanNameAppend = "eventlog.append"
	spanNameOpen   = "eventlog.open"

	operationAppend = "append"
	operationOpen   = "open"

	errorTypeValidation  = "validation"
	errorTypePersistence = "persistence"

	logMsgOpened            = "event log opened"
	logMsgEventAppended     = "event appended"
	logMsgAppendRejected    = "append rejected"
	logMsgPersistFailed     = "failed to persist event"
	logMsgIndexingFailed    = "event skipped by the index"
	logMsgListenerFailed    = "subscriber failed"
	logMsgLoadFailed        = "failed to load the event log"
	logAttrCacheInvalidated = "cache_invalidated"
)

var ErrStoreNotOpen = errors.New("event log is not open")
var ErrListenerPanicked = errors.New("subscriber panicked")

// Storage is the durable medium behind the log. Implementations must reject a second event with the same id.
type Storage interface {
	Persist(ctx context.Context, event eventstore.Event) error
	// LoadAll returns every persisted event ordered by seq.
	LoadAll(ctx context.Context) (eventstore.Events, error)
}

// CacheInvalidator removes the cache entries affected by an appended event.
type CacheInvalidator interface {
	InvalidateFor(ctx context.Context, event eventstore.Event) int
}

// Listener is invoked synchronously on the appending goroutine after each successful append.
// Errors and panics are logged and never reach the caller of Append.
// A Listener must not call Append on the same Store synchronously.
type Listener func(ctx context.Context, event eventstore.Event) error

type subscription struct {
	id       uint64
	listener Listener
}

// Store is the append-only event log of one device.
type Store struct {
	storage  Storage
	index    *index.Index
	cache    CacheInvalidator
	deviceID string
	observer eventstore.Observer

	appendMu sync.Mutex
	lastSeq  eventstore.SequenceNumber
	opened   atomic.Bool

	subscriptionsMu sync.RWMutex
	subscriptions   []subscription
	nextID          uint64

	pending chan struct{}
}

// NewStore creates a Store. Call Open before appending or reading.
func NewStore(storage Storage, idx *index.Index, options ...Option) (*Store, error) {
	if storage == nil || idx == nil {
		return nil, fmt.Errorf("%w: eventlog needs a storage and an index", eventstore.ErrMissingDependency)
	}

	s := &Store{
		storage:  storage,
		index:    idx,
		deviceID: defaultDeviceID,
		pending:  make(chan struct{}, 1),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Open loads the full log and rebuilds the indexes from scratch (cold start).
// Events the index cannot handle are logged and skipped; Open still succeeds.
func (s *Store) Open(ctx context.Context) error {
	ctx, span := s.observer.StartSpan(ctx, spanNameOpen, map[string]string{eventstore.LabelOperation: operationOpen})
	start := time.Now()

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	events, err := s.storage.LoadAll(ctx)
	if err != nil {
		s.observer.LogError(ctx, logMsgLoadFailed, err)
		s.observer.FinishSpan(span, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: errorTypePersistence})

		return errors.Join(eventstore.ErrPersistence, err)
	}

	if rebuildErr := s.index.Rebuild(events); rebuildErr != nil {
		s.reportIndexingErrors(ctx, rebuildErr)
	}

	s.lastSeq = 0
	for _, event := range events {
		s.lastSeq = max(s.lastSeq, event.Seq)
	}

	s.opened.Store(true)

	duration := time.Since(start)
	s.observer.LogInfo(ctx, logMsgOpened,
		eventstore.LogAttrCount, len(events),
		eventstore.LogAttrSeq, s.lastSeq,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration))
	s.observer.RecordDuration(ctx, metricAppendDuration, duration, map[string]string{
		eventstore.LabelOperation: operationOpen,
		eventstore.LabelStatus:    eventstore.StatusSuccess,
	})
	s.observer.RecordValue(ctx, metricEvents, float64(len(events)), nil)
	s.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{eventstore.LogAttrCount: strconv.Itoa(len(events))})

	return nil
}

// Ready reports whether Open has completed.
func (s *Store) Ready() bool {
	return s.opened.Load()
}

// Append validates, sequences and persists one event, then updates indexes, cache and subscribers.
// It returns the stored event with its assigned Seq.
//
// Failures: eventstore.ErrValidation for structurally invalid or duplicate events,
// eventstore.ErrPersistence if the storage write failed. In both cases nothing changed.
func (s *Store) Append(ctx context.Context, event eventstore.Event) (eventstore.Event, error) {
	ctx, span := s.observer.StartSpan(ctx, spanNameAppend, map[string]string{
		eventstore.LabelOperation:   operationAppend,
		eventstore.LogAttrEventType: event.Type,
	})
	start := time.Now()

	if !s.opened.Load() {
		s.observer.FinishSpan(span, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: "not_open"})
		return eventstore.Event{}, ErrStoreNotOpen
	}

	if err := event.Validate(); err != nil {
		return eventstore.Event{}, s.rejectAppend(ctx, span, event, errorTypeValidation, err)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if s.index.Contains(event.ID) {
		err := errors.Join(eventstore.ErrValidation, fmt.Errorf("%w: %s", eventstore.ErrDuplicateEventID, event.ID))
		return eventstore.Event{}, s.rejectAppend(ctx, span, event, errorTypeValidation, err)
	}

	stored := event.WithSeq(s.lastSeq + 1)
	if stored.Origin == "" {
		stored = stored.WithOrigin(s.deviceID)
	}

	if err := s.storage.Persist(ctx, stored); err != nil {
		// the index can miss an id whose stored row was skipped as corrupted
		if errors.Is(err, eventstore.ErrDuplicateEventID) {
			return eventstore.Event{}, s.rejectAppend(ctx, span, event, errorTypeValidation, errors.Join(eventstore.ErrValidation, err))
		}

		s.observer.LogError(ctx, logMsgPersistFailed, err,
			eventstore.LogAttrEventID, stored.ID.String(),
			eventstore.LogAttrEventType, stored.Type)

		return eventstore.Event{}, s.rejectAppend(ctx, span, event, errorTypePersistence, errors.Join(eventstore.ErrPersistence, err))
	}

	s.lastSeq = stored.Seq

	if err := s.index.Add(stored); err != nil {
		s.reportIndexingErrors(ctx, err)
	}

	invalidated := 0
	if s.cache != nil {
		invalidated = s.cache.InvalidateFor(ctx, stored)
	}

	s.notify(ctx, stored)
	s.signalPending()

	duration := time.Since(start)
	s.observer.LogDebug(ctx, logMsgEventAppended,
		eventstore.LogAttrEventID, stored.ID.String(),
		eventstore.LogAttrEventType, stored.Type,
		eventstore.LogAttrSeq, stored.Seq,
		logAttrCacheInvalidated, invalidated,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration))
	s.observer.RecordDuration(ctx, metricAppendDuration, duration, map[string]string{
		eventstore.LabelOperation: operationAppend,
		eventstore.LabelStatus:    eventstore.StatusSuccess,
	})
	s.observer.IncrementCounter(ctx, metricAppends, map[string]string{eventstore.LabelStatus: eventstore.StatusSuccess})
	s.observer.RecordValue(ctx, metricEvents, float64(stored.Seq), nil)
	s.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{eventstore.LogAttrSeq: strconv.FormatUint(stored.Seq, 10)})

	return stored, nil
}

func (s *Store) rejectAppend(
	ctx context.Context,
	span eventstore.SpanContext,
	event eventstore.Event,
	errorType string,
	err error,
) error {

	s.observer.LogDebug(ctx, logMsgAppendRejected,
		eventstore.LogAttrEventID, event.ID.String(),
		eventstore.LabelErrorType, errorType,
		eventstore.LogAttrError, err.Error())
	s.observer.IncrementCounter(ctx, metricAppends, map[string]string{
		eventstore.LabelStatus:    eventstore.StatusError,
		eventstore.LabelErrorType: errorType,
	})
	s.observer.FinishSpan(span, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: errorType})

	return err
}

func (s *Store) reportIndexingErrors(ctx context.Context, err error) {
	// Rebuild joins one ErrIndexing error per skipped event, Add returns a single one.
	causes := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok && joined.Unwrap()[0] != eventstore.ErrIndexing {
		causes = joined.Unwrap()
	}

	for _, cause := range causes {
		s.observer.LogWarn(ctx, logMsgIndexingFailed, eventstore.LogAttrError, cause.Error())
		s.observer.IncrementCounter(ctx, metricIndexingErrors, nil)
	}
}

// Subscribe registers a listener and returns a function which unregisters it.
// Listeners run in registration order.
func (s *Store) Subscribe(listener Listener) (unsubscribe func()) {
	s.subscriptionsMu.Lock()
	defer s.subscriptionsMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subscriptions = append(s.subscriptions, subscription{id: id, listener: listener})

	var once sync.Once

	return func() {
		once.Do(func() {
			s.subscriptionsMu.Lock()
			defer s.subscriptionsMu.Unlock()

			s.subscriptions = slices.DeleteFunc(s.subscriptions, func(sub subscription) bool { return sub.id == id })
		})
	}
}

func (s *Store) notify(ctx context.Context, event eventstore.Event) {
	s.subscriptionsMu.RLock()
	subscriptions := slices.Clone(s.subscriptions)
	s.subscriptionsMu.RUnlock()

	for _, sub := range subscriptions {
		if err := callListener(ctx, sub.listener, event); err != nil {
			s.observer.LogError(ctx, logMsgListenerFailed, err, eventstore.LogAttrEventID, event.ID.String())
			s.observer.IncrementCounter(ctx, metricListenerErrors, nil)
		}
	}
}

func callListener(ctx context.Context, listener Listener, event eventstore.Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrListenerPanicked, recovered)
		}
	}()

	return listener(ctx, event)
}

func (s *Store) signalPending() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Pending delivers a coalesced signal after appends; the replication manager waits on it.
func (s *Store) Pending() <-chan struct{} {
	return s.pending
}

// DeviceID returns the origin stamped onto locally created events.
func (s *Store) DeviceID() string {
	return s.deviceID
}

// LastSeq returns the sequence number of the most recent append.
func (s *Store) LastSeq() eventstore.SequenceNumber {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	return s.lastSeq
}

// Calendar returns the business calendar of the indexes.
func (s *Store) Calendar() eventstore.BusinessCalendar {
	return s.index.Calendar()
}

// All returns the full log ordered by seq, read from storage.
func (s *Store) All(ctx context.Context) (eventstore.Events, error) {
	if !s.opened.Load() {
		return nil, ErrStoreNotOpen
	}

	events, err := s.storage.LoadAll(ctx)
	if err != nil {
		return nil, errors.Join(eventstore.ErrPersistence, err)
	}

	slices.SortStableFunc(events, func(a, b eventstore.Event) int {
		if a.Seq != b.Seq {
			return compare(a.Seq, b.Seq)
		}
		return a.At.Compare(b.At)
	})

	return events, nil
}

func compare(a, b eventstore.SequenceNumber) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// EventsForAggregate returns the events of one aggregate from the aggregate index.
func (s *Store) EventsForAggregate(_ context.Context, aggregateID string) (eventstore.Events, error) {
	return s.index.ForAggregate(aggregateID)
}

// EventsByDateRange returns the events with from <= At <= until from the time index.
func (s *Store) EventsByDateRange(_ context.Context, from, until time.Time) (eventstore.Events, error) {
	return s.index.InRange(eventstore.NormalizeTime(from), eventstore.NormalizeTime(until))
}

// EventsForBusinessDate returns the events of one business date from the date index.
func (s *Store) EventsForBusinessDate(_ context.Context, date eventstore.BusinessDate) (eventstore.Events, error) {
	return s.index.ForBusinessDate(date)
}

// EventsByType returns the events of one type from the type index.
func (s *Store) EventsByType(_ context.Context, eventType string) (eventstore.Events, error) {
	return s.index.ByType(eventType)
}

// EventsAfterSeq returns the events with Seq > seq in seq order.
func (s *Store) EventsAfterSeq(_ context.Context, seq eventstore.SequenceNumber) (eventstore.Events, error) {
	return s.index.AfterSeq(seq)
}

// Query returns the events matching the filter, answered from the most selective index.
func (s *Store) Query(_ context.Context, filter eventstore.Filter) (eventstore.Events, error) {
	return s.index.Query(filter)
}

// Contains reports whether an event with that id was appended.
func (s *Store) Contains(id uuid.UUID) bool {
	return s.index.Contains(id)
}
