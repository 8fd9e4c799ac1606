package sqliteengine_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/sqliteengine"
)

// openTestDB returns a unique in-memory database with the production PRAGMAs and schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := "test_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqliteengine.OpenDSN(context.Background(), sqliteengine.MemoryDSN(name))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestEngine(t *testing.T, db *sql.DB) *sqliteengine.Engine {
	t.Helper()

	engine, err := sqliteengine.New(db)
	require.NoError(t, err)

	t.Cleanup(func() { _ = engine.Close() })

	return engine
}

func buildEvent(t *testing.T, seq uint64, aggregateID string) eventstore.Event {
	t.Helper()

	event, err := eventstore.RebuildEvent(
		uuid.New(),
		"loyalty.accrued",
		eventstore.Aggregate{ID: aggregateID, Type: "customer"},
		time.Date(2025, 1, 15, 12, 0, 0, int(seq)*int(time.Millisecond), time.UTC),
		[]byte(`{"customerId":"`+aggregateID+`","points":5}`),
		seq,
		"device-a",
	)
	require.NoError(t, err)

	return event
}
