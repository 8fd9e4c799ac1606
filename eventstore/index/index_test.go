package index_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/index"
)

var baseTime = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func buildEvent(t *testing.T, seq uint64, eventType, aggregateID string, at time.Time) eventstore.Event {
	t.Helper()

	event, err := eventstore.RebuildEvent(
		uuid.New(),
		eventType,
		eventstore.Aggregate{ID: aggregateID, Type: "ticket"},
		at,
		[]byte(`{}`),
		seq,
		"device-a",
	)
	require.NoError(t, err)

	return event
}

func ids(events eventstore.Events) []uuid.UUID {
	result := make([]uuid.UUID, len(events))
	for i, event := range events {
		result[i] = event.ID
	}

	return result
}

func Test_Index_QueriesBeforeRebuild_FailWithNotIndexed(t *testing.T) {
	idx := index.New(eventstore.DefaultBusinessCalendar())

	_, err := idx.ForAggregate("ticket-1")
	assert.ErrorIs(t, err, eventstore.ErrAggregateNotIndexed)

	_, err = idx.InRange(baseTime, baseTime.Add(time.Hour))
	assert.ErrorIs(t, err, eventstore.ErrAggregateNotIndexed)

	_, err = idx.Query(eventstore.BuildEventFilter().MatchingAnyEvent())
	assert.ErrorIs(t, err, eventstore.ErrAggregateNotIndexed)

	assert.False(t, idx.Ready())
}

func Test_Index_Add_UpdatesAllIndexes(t *testing.T) {
	// arrange
	idx := index.New(eventstore.DefaultBusinessCalendar())
	require.NoError(t, idx.Rebuild(nil))

	sale := buildEvent(t, 1, "sale.recorded", "ticket-1", baseTime)
	payment := buildEvent(t, 2, "payment.succeeded", "ticket-1", baseTime.Add(time.Minute))
	other := buildEvent(t, 3, "sale.recorded", "ticket-2", baseTime.Add(24*time.Hour))

	// act
	require.NoError(t, idx.Add(sale))
	require.NoError(t, idx.Add(payment))
	require.NoError(t, idx.Add(other))

	// assert
	forAggregate, err := idx.ForAggregate("ticket-1")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sale.ID, payment.ID}, ids(forAggregate))

	byType, err := idx.ByType("sale.recorded")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sale.ID, other.ID}, ids(byType))

	forDate, err := idx.ForBusinessDate("2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sale.ID, payment.ID}, ids(forDate))

	found, exists, err := idx.ByID(payment.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, payment, found)

	assert.Equal(t, uint64(3), idx.LastSeq())
	assert.Equal(t, 3, idx.Len())
}

func Test_Index_InRange_IsInclusiveAndSortedByTimestamp(t *testing.T) {
	// arrange
	idx := index.New(eventstore.DefaultBusinessCalendar())
	late := buildEvent(t, 1, "sale.recorded", "ticket-1", baseTime.Add(2*time.Hour))
	early := buildEvent(t, 2, "sale.recorded", "ticket-2", baseTime) // replicated, older timestamp
	middle := buildEvent(t, 3, "sale.recorded", "ticket-3", baseTime.Add(time.Hour))
	outside := buildEvent(t, 4, "sale.recorded", "ticket-4", baseTime.Add(3*time.Hour))
	require.NoError(t, idx.Rebuild(eventstore.Events{late, early, middle, outside}))

	// act
	inRange, err := idx.InRange(baseTime, baseTime.Add(2*time.Hour))

	// assert
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{early.ID, middle.ID, late.ID}, ids(inRange))

	openEnded, err := idx.InRange(baseTime.Add(time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{middle.ID, late.ID, outside.ID}, ids(openEnded))

	empty, err := idx.InRange(baseTime.Add(10*time.Hour), baseTime.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func Test_Index_EqualTimestamps_AreOrderedBySeq(t *testing.T) {
	idx := index.New(eventstore.DefaultBusinessCalendar())
	first := buildEvent(t, 1, "loyalty.accrued", "cust-1", baseTime)
	second := buildEvent(t, 2, "loyalty.redeemed", "cust-1", baseTime)
	require.NoError(t, idx.Rebuild(eventstore.Events{first, second}))

	events, err := idx.ForAggregate("cust-1")

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(events))
}

func Test_Index_Rebuild_SkipsCorruptedEventsOnly(t *testing.T) {
	// arrange
	idx := index.New(eventstore.DefaultBusinessCalendar())
	valid1 := buildEvent(t, 1, "sale.recorded", "ticket-1", baseTime)
	corrupted := eventstore.Event{ID: uuid.New(), Type: "sale.recorded", At: baseTime, Seq: 2, PayloadJSON: []byte(`{}`)}
	valid2 := buildEvent(t, 3, "sale.recorded", "ticket-2", baseTime)
	duplicate := valid2.WithSeq(4)

	// act
	err := idx.Rebuild(eventstore.Events{valid1, corrupted, valid2, duplicate})

	// assert
	assert.ErrorIs(t, err, eventstore.ErrIndexing)
	assert.ErrorIs(t, err, eventstore.ErrEmptyAggregateID)
	assert.ErrorIs(t, err, eventstore.ErrDuplicateEventID)
	assert.True(t, idx.Ready())
	assert.Equal(t, 2, idx.Len())
	assert.False(t, idx.Contains(corrupted.ID))

	all, queryErr := idx.Query(eventstore.BuildEventFilter().MatchingAnyEvent())
	require.NoError(t, queryErr)
	assert.Equal(t, []uuid.UUID{valid1.ID, valid2.ID}, ids(all))
}

func Test_Index_Add_RejectsEventWithoutSeq(t *testing.T) {
	idx := index.New(eventstore.DefaultBusinessCalendar())
	require.NoError(t, idx.Rebuild(nil))

	err := idx.Add(buildEvent(t, 0, "sale.recorded", "ticket-1", baseTime))

	assert.ErrorIs(t, err, eventstore.ErrIndexing)
	assert.ErrorIs(t, err, index.ErrMissingSequenceNumber)
}

func Test_Index_Rebuild_IsIdempotent(t *testing.T) {
	// arrange
	var events eventstore.Events
	for i := range 50 {
		at := baseTime.Add(time.Duration((i*37)%50) * 17 * time.Minute)
		events = append(events, buildEvent(t, uint64(i+1), fmt.Sprintf("type-%d", i%3), fmt.Sprintf("agg-%d", i%7), at))
	}

	idx := index.New(eventstore.DefaultBusinessCalendar())

	// act
	require.NoError(t, idx.Rebuild(events))
	first := idx.Snapshot()
	require.NoError(t, idx.Rebuild(events))
	second := idx.Snapshot()

	// assert
	assert.Equal(t, first, second)
	assert.Len(t, first.Timeline, 50)
}

func Test_Index_IndexedQueries_DoNotScanTheFullLog(t *testing.T) {
	// arrange
	var events eventstore.Events
	for i := range 1000 {
		events = append(events, buildEvent(t, uint64(i+1), "sale.recorded", fmt.Sprintf("ticket-%d", i%100), baseTime.Add(time.Duration(i)*time.Minute)))
	}

	idx := index.New(eventstore.DefaultBusinessCalendar())
	require.NoError(t, idx.Rebuild(events))
	before := idx.Stats().Visited

	// act
	forAggregate, err := idx.ForAggregate("ticket-42")
	require.NoError(t, err)
	afterAggregate := idx.Stats().Visited

	inRange, err := idx.InRange(baseTime.Add(100*time.Minute), baseTime.Add(104*time.Minute))
	require.NoError(t, err)
	afterRange := idx.Stats().Visited

	filtered, err := idx.Query(eventstore.BuildEventFilter().ForAggregate("ticket-7").AnyEventTypeOf("sale.recorded").Finalize())
	require.NoError(t, err)
	afterQuery := idx.Stats().Visited

	// assert
	assert.Len(t, forAggregate, 10)
	assert.Equal(t, uint64(10), afterAggregate-before)
	assert.Len(t, inRange, 5)
	assert.Equal(t, uint64(5), afterRange-afterAggregate)
	assert.Len(t, filtered, 10)
	assert.Equal(t, uint64(10), afterQuery-afterRange)
}

func Test_Index_AfterSeq(t *testing.T) {
	idx := index.New(eventstore.DefaultBusinessCalendar())
	e1 := buildEvent(t, 1, "a", "x", baseTime)
	e2 := buildEvent(t, 2, "a", "x", baseTime)
	e3 := buildEvent(t, 3, "a", "x", baseTime)
	require.NoError(t, idx.Rebuild(eventstore.Events{e1, e2, e3}))

	after, err := idx.AfterSeq(1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e2.ID, e3.ID}, ids(after))

	none, err := idx.AfterSeq(3)
	require.NoError(t, err)
	assert.Empty(t, none)
}
