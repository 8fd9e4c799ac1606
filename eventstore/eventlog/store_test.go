package eventlog_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/eventlog"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/index"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/pos-eventstore-go/testutil/helper"
)

var day = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func newOpenStore(t *testing.T, storage eventlog.Storage, options ...eventlog.Option) *eventlog.Store {
	t.Helper()

	store, err := eventlog.NewStore(storage, index.New(eventstore.DefaultBusinessCalendar()), options...)
	require.NoError(t, err)
	require.NoError(t, store.Open(context.Background()))

	return store
}

func loyaltyEvent(t *testing.T, eventType, customerID string, at time.Time) eventstore.Event {
	t.Helper()

	event, err := eventstore.BuildEvent(
		eventType,
		eventstore.Aggregate{ID: customerID, Type: "customer"},
		at,
		[]byte(`{"customerId":"`+customerID+`","points":10}`),
	)
	require.NoError(t, err)

	return event
}

func Test_NewStore_FailsWithoutDependencies(t *testing.T) {
	_, err := eventlog.NewStore(nil, index.New(eventstore.DefaultBusinessCalendar()))
	assert.ErrorIs(t, err, eventstore.ErrMissingDependency)

	_, err = eventlog.NewStore(memoryengine.New(), nil)
	assert.ErrorIs(t, err, eventstore.ErrMissingDependency)

	_, err = eventlog.NewStore(memoryengine.New(), index.New(eventstore.DefaultBusinessCalendar()), eventlog.WithDeviceID(""))
	assert.ErrorIs(t, err, eventlog.ErrEmptyDeviceID)
}

func Test_Store_BeforeOpen(t *testing.T) {
	store, err := eventlog.NewStore(memoryengine.New(), index.New(eventstore.DefaultBusinessCalendar()))
	require.NoError(t, err)

	_, err = store.Append(context.Background(), loyaltyEvent(t, "loyalty.accrued", "cust-1", day))
	assert.ErrorIs(t, err, eventlog.ErrStoreNotOpen)

	_, err = store.EventsForAggregate(context.Background(), "cust-1")
	assert.ErrorIs(t, err, eventstore.ErrAggregateNotIndexed)

	assert.False(t, store.Ready())
}

func Test_Append_ThenRead(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := newOpenStore(t, memoryengine.New(), eventlog.WithDeviceID("device-a"))
	var appended eventstore.Events

	// act
	for i := range 5 {
		stored, err := store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		appended = append(appended, stored)
	}

	// assert
	for i, stored := range appended {
		assert.Equal(t, eventstore.SequenceNumber(i+1), stored.Seq)
		assert.Equal(t, "device-a", stored.Origin)
	}

	forAggregate, err := store.EventsForAggregate(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, appended, forAggregate)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, appended, all)

	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}

	assert.Equal(t, eventstore.SequenceNumber(5), store.LastSeq())
}

func Test_Reads_DoNotSharePayloadBytes(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := newOpenStore(t, memoryengine.New())
	event := loyaltyEvent(t, "loyalty.accrued", "cust-1", day)
	original := string(event.PayloadJSON)

	stored, err := store.Append(ctx, event)
	require.NoError(t, err)

	// act
	copy(event.PayloadJSON, `{"customerId":"cust-9","points":99}`)
	copy(stored.PayloadJSON, `{"customerId":"cust-9","points":99}`)

	forAggregate, err := store.EventsForAggregate(ctx, "cust-1")
	require.NoError(t, err)
	copy(forAggregate[0].PayloadJSON, `{"customerId":"cust-9","points":99}`)

	byType, err := store.EventsByType(ctx, "loyalty.accrued")
	require.NoError(t, err)
	copy(byType[0].PayloadJSON, `{"customerId":"cust-9","points":99}`)

	afterSeq, err := store.EventsAfterSeq(ctx, 0)
	require.NoError(t, err)
	copy(afterSeq[0].PayloadJSON, `{"customerId":"cust-9","points":99}`)

	all, err := store.All(ctx)
	require.NoError(t, err)
	copy(all[0].PayloadJSON, `{"customerId":"cust-9","points":99}`)

	// assert
	reread, err := store.EventsForAggregate(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, reread, 1)
	assert.JSONEq(t, original, string(reread[0].PayloadJSON))

	rereadAll, err := store.All(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, original, string(rereadAll[0].PayloadJSON))
}

func Test_Append_KeepsForeignOrigin(t *testing.T) {
	store := newOpenStore(t, memoryengine.New(), eventlog.WithDeviceID("device-a"))
	event := loyaltyEvent(t, "loyalty.accrued", "cust-1", day).WithOrigin("device-b")

	stored, err := store.Append(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, "device-b", stored.Origin)
}

func Test_Append_RejectsInvalidAndDuplicateEvents(t *testing.T) {
	// arrange
	ctx := context.Background()
	storage := memoryengine.New()
	store := newOpenStore(t, storage)
	event := loyaltyEvent(t, "loyalty.accrued", "cust-1", day)
	_, err := store.Append(ctx, event)
	require.NoError(t, err)

	invalid := event
	invalid.Type = ""

	// act
	_, invalidErr := store.Append(ctx, invalid)
	_, duplicateErr := store.Append(ctx, event)

	// assert
	assert.ErrorIs(t, invalidErr, eventstore.ErrValidation)
	assert.ErrorIs(t, invalidErr, eventstore.ErrEmptyEventType)
	assert.ErrorIs(t, duplicateErr, eventstore.ErrValidation)
	assert.ErrorIs(t, duplicateErr, eventstore.ErrDuplicateEventID)
	assert.Equal(t, 1, storage.Len())
	assert.Equal(t, eventstore.SequenceNumber(1), store.LastSeq())
}

func Test_Append_PersistenceFailure_LeavesEverythingUnchanged(t *testing.T) {
	// arrange
	ctx := context.Background()
	quotaExceeded := errors.New("quota exceeded")
	failing := true
	storage := memoryengine.New(memoryengine.WithPersistHook(func(context.Context, eventstore.Event) error {
		if failing {
			return quotaExceeded
		}
		return nil
	}))

	c, err := cache.New(10)
	require.NoError(t, err)
	c.RegisterDependency("loyalty.balance", "loyalty.accrued")
	balanceKey := cache.AggregateKey("loyalty.balance", "cust-1")
	_, _ = cache.GetOrCompute(ctx, c, balanceKey, func(context.Context) (int, error) { return 0, nil })

	notified := 0
	store := newOpenStore(t, storage, eventlog.WithCache(c))
	store.Subscribe(func(context.Context, eventstore.Event) error {
		notified++
		return nil
	})
	event := loyaltyEvent(t, "loyalty.accrued", "cust-1", day)

	// act
	_, appendErr := store.Append(ctx, event)

	// assert
	assert.ErrorIs(t, appendErr, eventstore.ErrPersistence)
	assert.ErrorIs(t, appendErr, quotaExceeded)
	assert.Equal(t, 0, storage.Len())
	assert.Equal(t, eventstore.SequenceNumber(0), store.LastSeq())
	assert.False(t, store.Contains(event.ID))
	assert.Equal(t, 0, notified)
	_, stillCached := c.Get(balanceKey)
	assert.True(t, stillCached)
	select {
	case <-store.Pending():
		t.Fatal("failed append must not signal pending work")
	default:
	}

	// the caller can retry with the same event
	failing = false
	stored, retryErr := store.Append(ctx, event)
	require.NoError(t, retryErr)
	assert.Equal(t, eventstore.SequenceNumber(1), stored.Seq)
	assert.Equal(t, 1, notified)
}

func Test_Append_SideEffectsAreVisibleToSubscribers(t *testing.T) {
	// arrange
	ctx := context.Background()
	c, err := cache.New(10)
	require.NoError(t, err)
	c.RegisterDependency("loyalty.balance", "loyalty.accrued")
	balanceKey := cache.AggregateKey("loyalty.balance", "cust-1")
	_, _ = cache.GetOrCompute(ctx, c, balanceKey, func(context.Context) (int, error) { return 0, nil })

	storage := memoryengine.New()
	store := newOpenStore(t, storage, eventlog.WithCache(c))

	var (
		persistedBeforeNotify bool
		indexedBeforeNotify   bool
		invalidatedBefore     bool
	)
	store.Subscribe(func(ctx context.Context, event eventstore.Event) error {
		persistedBeforeNotify = storage.Len() == 1
		events, _ := store.EventsForAggregate(ctx, event.Aggregate.ID)
		indexedBeforeNotify = len(events) == 1
		_, cached := c.Get(balanceKey)
		invalidatedBefore = !cached
		return nil
	})

	// act
	_, err = store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day))

	// assert
	require.NoError(t, err)
	assert.True(t, persistedBeforeNotify)
	assert.True(t, indexedBeforeNotify)
	assert.True(t, invalidatedBefore)
	select {
	case <-store.Pending():
	default:
		t.Fatal("expected a pending signal")
	}
}

func Test_Subscribe_ListenerFailuresNeverReachTheCaller(t *testing.T) {
	// arrange
	ctx := context.Background()
	logSpy := helper.NewLogHandlerSpy(false)
	metricsSpy := helper.NewMetricsCollectorSpy()
	store := newOpenStore(t, memoryengine.New(),
		eventlog.WithLogger(logSpy.NewLogger()),
		eventlog.WithMetrics(metricsSpy))

	var calls []string
	store.Subscribe(func(context.Context, eventstore.Event) error {
		calls = append(calls, "failing")
		return errors.New("render failed")
	})
	store.Subscribe(func(context.Context, eventstore.Event) error {
		calls = append(calls, "panicking")
		panic("boom")
	})
	store.Subscribe(func(context.Context, eventstore.Event) error {
		calls = append(calls, "healthy")
		return nil
	})

	// act
	stored, err := store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day))

	// assert
	require.NoError(t, err)
	assert.Equal(t, eventstore.SequenceNumber(1), stored.Seq)
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, calls)
	assert.Equal(t, 2, logSpy.CountLogs(slog.LevelError, "subscriber failed"))
	assert.Equal(t, 2, metricsSpy.CounterCount("eventlog_listener_errors_total", nil))
}

func Test_Subscribe_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	store := newOpenStore(t, memoryengine.New())
	calls := 0
	unsubscribe := store.Subscribe(func(context.Context, eventstore.Event) error {
		calls++
		return nil
	})

	_, _ = store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day))
	unsubscribe()
	unsubscribe()
	_, _ = store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day))

	assert.Equal(t, 1, calls)
}

func Test_Open_RebuildsFromStorageAndContinuesSeq(t *testing.T) {
	// arrange
	ctx := context.Background()
	storage := memoryengine.New()
	first := newOpenStore(t, storage)
	for range 3 {
		_, err := first.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day))
		require.NoError(t, err)
	}

	logSpy := helper.NewLogHandlerSpy(false)

	// act
	restarted := newOpenStore(t, storage, eventlog.WithLogger(logSpy.NewLogger()))
	stored, err := restarted.Append(ctx, loyaltyEvent(t, "loyalty.redeemed", "cust-1", day))

	// assert
	require.NoError(t, err)
	assert.Equal(t, eventstore.SequenceNumber(4), stored.Seq)
	events, err := restarted.EventsForAggregate(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "event log opened", eventstore.LogAttrCount))
}

func Test_Open_SkipsCorruptedEventsAndLogsThem(t *testing.T) {
	// arrange
	valid := loyaltyEvent(t, "loyalty.accrued", "cust-1", day).WithSeq(1)
	corrupted := loyaltyEvent(t, "loyalty.accrued", "cust-1", day).WithSeq(2)
	corrupted.PayloadJSON = []byte("not json")
	storage := memoryengine.New(memoryengine.WithEvents(eventstore.Events{valid, corrupted}))
	logSpy := helper.NewLogHandlerSpy(false)

	// act
	store := newOpenStore(t, storage, eventlog.WithLogger(logSpy.NewLogger()))

	// assert
	events, err := store.EventsForAggregate(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, eventstore.Events{valid}, events)
	assert.Equal(t, 1, logSpy.CountLogs(slog.LevelWarn, "event skipped by the index"))
	assert.Equal(t, eventstore.SequenceNumber(2), store.LastSeq())
}

func Test_Append_IdOfASkippedStoredEvent_IsADuplicate(t *testing.T) {
	// arrange
	ctx := context.Background()
	corrupted := loyaltyEvent(t, "loyalty.accrued", "cust-1", day).WithSeq(1)
	corrupted.PayloadJSON = []byte("not json")
	storage := memoryengine.New(memoryengine.WithEvents(eventstore.Events{corrupted}))
	store := newOpenStore(t, storage)

	retried := loyaltyEvent(t, "loyalty.accrued", "cust-1", day)
	retried.ID = corrupted.ID

	// act
	_, err := store.Append(ctx, retried)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrValidation)
	assert.ErrorIs(t, err, eventstore.ErrDuplicateEventID)
	assert.NotErrorIs(t, err, eventstore.ErrPersistence)
	assert.Equal(t, 1, storage.Len())
	assert.Equal(t, eventstore.SequenceNumber(1), store.LastSeq())
}

func Test_Store_DateQueries(t *testing.T) {
	ctx := context.Background()
	store := newOpenStore(t, memoryengine.New())
	morning, _ := store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-1", day))
	evening, _ := store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-2", day.Add(10*time.Hour)))
	_, _ = store.Append(ctx, loyaltyEvent(t, "loyalty.accrued", "cust-3", day.Add(24*time.Hour)))

	byDate, err := store.EventsForBusinessDate(ctx, "2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, eventstore.Events{morning, evening}, byDate)

	byRange, err := store.EventsByDateRange(ctx, day, day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, eventstore.Events{morning, evening}, byRange)

	queried, err := store.Query(ctx, eventstore.BuildEventFilter().ForAggregate("cust-2").Finalize())
	require.NoError(t, err)
	assert.Equal(t, eventstore.Events{evening}, queried)
}

func Test_Append_IsObservable(t *testing.T) {
	// arrange
	metricsSpy := helper.NewMetricsCollectorSpy()
	tracingSpy := helper.NewTracingCollectorSpy()
	store := newOpenStore(t, memoryengine.New(), eventlog.WithMetrics(metricsSpy), eventlog.WithTracing(tracingSpy))

	// act
	_, err := store.Append(context.Background(), loyaltyEvent(t, "loyalty.accrued", "cust-1", day))
	require.NoError(t, err)
	_, _ = store.Append(context.Background(), eventstore.Event{})

	// assert
	assert.True(t, metricsSpy.HasDurationRecord("eventlog_append_duration_seconds", map[string]string{"operation": "append", "status": "success"}))
	assert.Equal(t, 1, metricsSpy.CounterCount("eventlog_appends_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1, metricsSpy.CounterCount("eventlog_appends_total", map[string]string{"status": "error", "error_type": "validation"}))

	spans := tracingSpy.FinishedSpans("eventlog.append")
	require.Len(t, spans, 2)
	assert.Equal(t, "success", spans[0].Status)
	assert.Equal(t, "1", spans[0].EndAttributes["seq"])
	assert.Equal(t, "error", spans[1].Status)
}
