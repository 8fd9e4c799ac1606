package postgresengine

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

const (
	defaultTableName = "sync_events"
	dialectPostgres  = "postgres"

	colRevision      = "revision"
	colNamespace     = "namespace"
	colEventID       = "event_id"
	colEventType     = "event_type"
	colOccurredAt    = "occurred_at"
	colAggregateID   = "aggregate_id"
	colAggregateType = "aggregate_type"
	colPayload       = "payload"
	colOrigin        = "origin"
	colOriginSeq     = "origin_seq"
)

var dialect = goqu.Dialect(dialectPostgres)

// schemaStatements create the table and its paging index; they are idempotent.
func schemaStatements(table string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
	revision       BIGSERIAL PRIMARY KEY,
	namespace      TEXT NOT NULL,
	event_id       UUID NOT NULL,
	event_type     TEXT NOT NULL,
	occurred_at    TIMESTAMPTZ NOT NULL,
	aggregate_id   TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	payload        JSON NOT NULL,
	origin         TEXT NOT NULL,
	origin_seq     BIGINT NOT NULL,
	UNIQUE (namespace, event_id)
)`,
		`CREATE INDEX IF NOT EXISTS ` + table + `_namespace_revision_idx ON ` + table + ` (namespace, revision)`,
	}
}

func buildPushQuery(table, namespace string, events eventstore.Events) (string, []any, error) {
	rows := make([]any, 0, len(events))
	for _, event := range events {
		rows = append(rows, goqu.Record{
			colNamespace:     namespace,
			colEventID:       event.ID.String(),
			colEventType:     event.Type,
			colOccurredAt:    event.At,
			colAggregateID:   event.Aggregate.ID,
			colAggregateType: event.Aggregate.Type,
			colPayload:       string(event.PayloadJSON),
			colOrigin:        event.Origin,
			colOriginSeq:     int64(event.Seq), //nolint:gosec // sequence numbers stay far below MaxInt64
		})
	}

	return dialect.Insert(table).
		Prepared(true).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		Returning(goqu.C(colRevision)).
		ToSQL()
}

func buildHeadRevisionQuery(table, namespace string) (string, []any, error) {
	return dialect.From(table).
		Prepared(true).
		Select(goqu.COALESCE(goqu.MAX(colRevision), 0)).
		Where(goqu.C(colNamespace).Eq(namespace)).
		ToSQL()
}

// buildPullQuery asks for one row more than the limit to know whether there are more.
func buildPullQuery(table, namespace string, afterRevision uint64, limit int) (string, []any, error) {
	return dialect.From(table).
		Prepared(true).
		Select(
			goqu.C(colRevision),
			goqu.L(colEventID+"::text"),
			goqu.C(colEventType),
			goqu.C(colOccurredAt),
			goqu.C(colAggregateID),
			goqu.C(colAggregateType),
			goqu.C(colPayload),
			goqu.C(colOrigin),
			goqu.C(colOriginSeq),
		).
		Where(
			goqu.C(colNamespace).Eq(namespace),
			goqu.C(colRevision).Gt(int64(afterRevision)), //nolint:gosec // revisions come from BIGSERIAL
		).
		Order(goqu.C(colRevision).Asc()).
		Limit(uint(limit + 1)). //nolint:gosec // limit is positive
		ToSQL()
}
