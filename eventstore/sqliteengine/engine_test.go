package sqliteengine_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/sqliteengine"
)

func Test_Engine_PersistThenLoadAll(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine := newTestEngine(t, openTestDB(t))
	first := buildEvent(t, 1, "cust-1")
	second := buildEvent(t, 2, "cust-2")

	// act
	require.NoError(t, engine.Persist(ctx, second.WithSeq(2)))
	require.NoError(t, engine.Persist(ctx, first.WithSeq(1)))
	events, err := engine.LoadAll(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, first.At, events[0].At)
	assert.Equal(t, first.Aggregate, events[0].Aggregate)
	assert.JSONEq(t, string(first.PayloadJSON), string(events[0].PayloadJSON))
	assert.Equal(t, "device-a", events[0].Origin)
	assert.Equal(t, second.ID, events[1].ID)
}

func Test_Engine_Persist_RejectsDuplicateIDAndSeq(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, openTestDB(t))
	event := buildEvent(t, 1, "cust-1")
	require.NoError(t, engine.Persist(ctx, event))

	assert.ErrorIs(t, engine.Persist(ctx, event.WithSeq(2)), eventstore.ErrDuplicateEventID, "duplicate event id")
	seqErr := engine.Persist(ctx, buildEvent(t, 1, "cust-2"))
	assert.Error(t, seqErr, "duplicate seq")
	assert.NotErrorIs(t, seqErr, eventstore.ErrDuplicateEventID)

	events, err := engine.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func Test_Engine_LoadAll_ReturnsCorruptedRowsForTheIndexToSkip(t *testing.T) {
	// arrange
	ctx := context.Background()
	db := openTestDB(t)
	engine := newTestEngine(t, db)
	require.NoError(t, engine.Persist(ctx, buildEvent(t, 1, "cust-1")))

	_, err := db.ExecContext(ctx, `INSERT INTO events(seq, event_id, event_type, occurred_at_ms, aggregate_id, aggregate_type, payload)
VALUES (2, 'garbage', 'loyalty.accrued', 1, '', 'customer', 'not json');`)
	require.NoError(t, err)

	// act
	events, err := engine.LoadAll(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.ErrorIs(t, events[1].Validate(), eventstore.ErrValidation)
}

func Test_Engine_Cursors(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, openTestDB(t))

	initial, err := engine.LoadCursor(ctx, "hub/main")
	require.NoError(t, err)
	assert.Equal(t, eventstore.Cursor{}, initial)

	require.NoError(t, engine.SaveCursor(ctx, "hub/main", eventstore.Cursor{PushedSeq: 3, PulledRevision: 7}))
	require.NoError(t, engine.SaveCursor(ctx, "hub/main", eventstore.Cursor{PushedSeq: 5, PulledRevision: 9}))

	loaded, err := engine.LoadCursor(ctx, "hub/main")
	require.NoError(t, err)
	assert.Equal(t, eventstore.Cursor{PushedSeq: 5, PulledRevision: 9}, loaded)
}

func Test_Engine_SurvivesReopen(t *testing.T) {
	// arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "pos.db")

	db, err := sqliteengine.OpenFile(ctx, path)
	require.NoError(t, err)
	engine, err := sqliteengine.New(db)
	require.NoError(t, err)
	event := buildEvent(t, 1, "cust-1")
	require.NoError(t, engine.Persist(ctx, event))
	require.NoError(t, engine.SaveCursor(ctx, "hub/main", eventstore.Cursor{PushedSeq: 1}))
	require.NoError(t, engine.Close())
	require.NoError(t, db.Close())

	// act
	reopened, err := sqliteengine.OpenFile(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	engine = newTestEngine(t, reopened)

	// assert
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	events, err := engine.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)

	cursor, err := engine.LoadCursor(ctx, "hub/main")
	require.NoError(t, err)
	assert.Equal(t, eventstore.SequenceNumber(1), cursor.PushedSeq)
}

func Test_Writer_RejectsJobsAfterClose(t *testing.T) {
	writer := sqliteengine.NewWriter(openTestDB(t))
	writer.Close()
	writer.Close()

	err := writer.Do(context.Background(), func(context.Context, *sql.Tx) error { return nil })

	assert.ErrorIs(t, err, sqliteengine.ErrWriterClosed)
}

func Test_OpenFile_SyncsEveryCommit(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, err := sqliteengine.OpenFile(ctx, filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// act
	var journalMode string
	var synchronous int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&synchronous))

	// assert
	assert.Equal(t, "wal", journalMode)
	assert.Equal(t, 2, synchronous, "FULL")
}
