package eventstore_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

//nolint:funlen
func Test_FilterBuilder_ValidCombinations(t *testing.T) {
	tests := []struct {
		name     string
		build    func() eventstore.Filter
		validate func(t *testing.T, filter eventstore.Filter)
	}{
		{
			name: "matching_any_event_creates_empty_filter",
			build: func() eventstore.Filter {
				return eventstore.BuildEventFilter().MatchingAnyEvent()
			},
			validate: func(t *testing.T, f eventstore.Filter) {
				assert.Empty(t, f.EventTypes())
				assert.Empty(t, f.AggregateID())
				assert.False(t, f.HasTimeRange())
				assert.Equal(t, uint64(0), f.SequenceNumberHigherThan())
			},
		},
		{
			name: "sequence_only_filter",
			build: func() eventstore.Filter {
				return eventstore.BuildEventFilter().
					WithSequenceNumberHigherThan(12345).
					Finalize()
			},
			validate: func(t *testing.T, f eventstore.Filter) {
				assert.Equal(t, uint64(12345), f.SequenceNumberHigherThan())
				assert.False(t, f.HasTimeRange())
			},
		},
		{
			name: "occurred_between_normalizes_to_utc_millis",
			build: func() eventstore.Filter {
				berlin := time.FixedZone("CET", 3600)
				return eventstore.BuildEventFilter().
					OccurredBetween(
						time.Date(2025, 1, 15, 1, 0, 0, 123456789, berlin),
						time.Date(2025, 1, 15, 23, 0, 0, 0, berlin),
					).
					Finalize()
			},
			validate: func(t *testing.T, f eventstore.Filter) {
				assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 123000000, time.UTC), f.OccurredFrom())
				assert.Equal(t, time.Date(2025, 1, 15, 22, 0, 0, 0, time.UTC), f.OccurredUntil())
				assert.True(t, f.HasTimeRange())
			},
		},
		{
			name: "event_types_are_sanitized",
			build: func() eventstore.Filter {
				return eventstore.BuildEventFilter().
					AnyEventTypeOf("loyalty.redeemed", "", "loyalty.accrued", "loyalty.redeemed").
					Finalize()
			},
			validate: func(t *testing.T, f eventstore.Filter) {
				assert.Equal(t, []string{"loyalty.accrued", "loyalty.redeemed"}, f.EventTypes())
			},
		},
		{
			name: "event_types_accumulate_over_calls",
			build: func() eventstore.Filter {
				return eventstore.BuildEventFilter().
					AnyEventTypeOf("payment.succeeded").
					AnyEventTypeOf("payment.failed").
					ForAggregate("ticket-1").
					Finalize()
			},
			validate: func(t *testing.T, f eventstore.Filter) {
				assert.Equal(t, []string{"payment.failed", "payment.succeeded"}, f.EventTypes())
				assert.Equal(t, "ticket-1", f.AggregateID())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, tt.build())
		})
	}
}

func Test_FilterBuilder_IsImmutable(t *testing.T) {
	// arrange
	base := eventstore.BuildEventFilter().AnyEventTypeOf("sale.recorded")

	// act
	withAggregate := base.ForAggregate("ticket-1").Finalize()
	withType := base.AnyEventTypeOf("payment.failed").Finalize()

	// assert
	assert.Equal(t, []string{"sale.recorded"}, base.Finalize().EventTypes())
	assert.Empty(t, base.Finalize().AggregateID())
	assert.Equal(t, "ticket-1", withAggregate.AggregateID())
	assert.Equal(t, []string{"payment.failed", "sale.recorded"}, withType.EventTypes())
}

func Test_Filter_Matches(t *testing.T) {
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	event, err := eventstore.RebuildEvent(
		uuid.New(),
		"sale.recorded",
		eventstore.Aggregate{ID: "ticket-1", Type: "ticket"},
		at,
		[]byte(`{}`),
		7,
		"device-a",
	)
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  eventstore.Filter
		matches bool
	}{
		{"empty filter", eventstore.BuildEventFilter().MatchingAnyEvent(), true},
		{"matching type", eventstore.BuildEventFilter().AnyEventTypeOf("x", "sale.recorded").Finalize(), true},
		{"other type", eventstore.BuildEventFilter().AnyEventTypeOf("payment.failed").Finalize(), false},
		{"matching aggregate", eventstore.BuildEventFilter().ForAggregate("ticket-1").Finalize(), true},
		{"other aggregate", eventstore.BuildEventFilter().ForAggregate("ticket-2").Finalize(), false},
		{"inclusive lower bound", eventstore.BuildEventFilter().OccurredFrom(at).Finalize(), true},
		{"inclusive upper bound", eventstore.BuildEventFilter().OccurredUntil(at).Finalize(), true},
		{"before range", eventstore.BuildEventFilter().OccurredFrom(at.Add(time.Millisecond)).Finalize(), false},
		{"after range", eventstore.BuildEventFilter().OccurredUntil(at.Add(-time.Millisecond)).Finalize(), false},
		{"seq higher than", eventstore.BuildEventFilter().WithSequenceNumberHigherThan(6).Finalize(), true},
		{"seq not higher than", eventstore.BuildEventFilter().WithSequenceNumberHigherThan(7).Finalize(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.filter.Matches(event))
		})
	}
}
