package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect import
	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

const (
	dialectSQLite = "sqlite3"

	tableEvents  = "events"
	tableCursors = "sync_cursors"

	colSeq            = "seq"
	colEventID        = "event_id"
	colEventType      = "event_type"
	colOccurredAtMS   = "occurred_at_ms"
	colAggregateID    = "aggregate_id"
	colAggregateType  = "aggregate_type"
	colPayload        = "payload"
	colOrigin         = "origin"
	colRemoteKey      = "remote_key"
	colPushedSeq      = "pushed_seq"
	colPulledRevision = "pulled_revision"
	colUpdatedAtMS    = "updated_at_ms"

	logMsgSQLExecuted   = "executed sql for: "
	logMsgScanRowFailed = "failed to scan event row"
	logAttrQuery        = "query"
	logActionPersist    = "persist"
	logActionLoadAll    = "load all"
	logActionCursor     = "save cursor"
)

// Engine stores events and sync cursors in SQLite. Reads use the connection pool, writes the Writer.
type Engine struct {
	db       *sql.DB
	writer   *Writer
	dialect  goqu.DialectWrapper
	observer eventstore.Observer
}

// Option defines a functional option for configuring Engine.
type Option func(*Engine)

// WithLogger logs every executed statement at debug level.
func WithLogger(logger eventstore.Logger) Option {
	return func(e *Engine) {
		e.observer.Logger = logger
	}
}

// New creates an Engine on an opened and migrated database. Close releases the writer, not the database.
func New(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: sqliteengine needs a database", eventstore.ErrMissingDependency)
	}

	e := &Engine{
		db:      db,
		writer:  NewWriter(db),
		dialect: goqu.Dialect(dialectSQLite),
	}

	for _, option := range options {
		option(e)
	}

	return e, nil
}

// Persist inserts one event in its own transaction. Duplicate ids and seqs are rejected by constraints.
//
// Once enqueued, the write is awaited even if ctx is cancelled, so the caller always learns
// whether the event was committed.
func (e *Engine) Persist(ctx context.Context, event eventstore.Event) error {
	sqlQuery, args, err := e.dialect.Insert(tableEvents).Rows(goqu.Record{
		colSeq:           event.Seq,
		colEventID:       event.ID.String(),
		colEventType:     event.Type,
		colOccurredAtMS:  event.AtMillis(),
		colAggregateID:   event.Aggregate.ID,
		colAggregateType: event.Aggregate.Type,
		colPayload:       string(event.PayloadJSON),
		colOrigin:        event.Origin,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	start := time.Now()
	err = e.writer.Do(context.WithoutCancel(ctx), func(ctx context.Context, tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, sqlQuery, args...)
		return execErr
	})
	e.logQueryWithDuration(ctx, sqlQuery, logActionPersist, time.Since(start))

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", eventstore.ErrDuplicateEventID, event.ID)
	}

	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}

	return nil
}

// LoadAll returns every stored event ordered by seq.
//
// Rows are returned as stored, without validation: a corrupted row surfaces as an invalid Event
// which the index skips, instead of making the whole log unreadable.
func (e *Engine) LoadAll(ctx context.Context) (eventstore.Events, error) {
	sqlQuery, _, err := e.dialect.From(tableEvents).
		Select(colSeq, colEventID, colEventType, colOccurredAtMS, colAggregateID, colAggregateType, colPayload, colOrigin).
		Order(goqu.C(colSeq).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make(eventstore.Events, 0)
	for rows.Next() {
		var (
			seq                        eventstore.SequenceNumber
			id, eventType, aggregateID string
			aggregateType, payload     string
			origin                     string
			occurredAtMS               int64
		)

		if scanErr := rows.Scan(&seq, &id, &eventType, &occurredAtMS, &aggregateID, &aggregateType, &payload, &origin); scanErr != nil {
			e.observer.LogError(ctx, logMsgScanRowFailed, scanErr)
			return nil, fmt.Errorf("scan event row: %w", scanErr)
		}

		parsedID, _ := uuid.Parse(id) // uuid.Nil for corrupted ids, rejected by the index

		events = append(events, eventstore.Event{
			ID:          parsedID,
			Type:        eventType,
			At:          eventstore.TimeFromMillis(occurredAtMS),
			Aggregate:   eventstore.Aggregate{ID: aggregateID, Type: aggregateType},
			PayloadJSON: []byte(payload),
			Seq:         seq,
			Origin:      origin,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	e.logQueryWithDuration(ctx, sqlQuery, logActionLoadAll, time.Since(start))

	return events, nil
}

// LoadCursor returns the stored cursor of a remote, or the zero cursor.
func (e *Engine) LoadCursor(ctx context.Context, remoteKey string) (eventstore.Cursor, error) {
	sqlQuery, args, err := e.dialect.From(tableCursors).
		Select(colPushedSeq, colPulledRevision).
		Where(goqu.C(colRemoteKey).Eq(remoteKey)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return eventstore.Cursor{}, fmt.Errorf("build cursor query: %w", err)
	}

	var cursor eventstore.Cursor
	err = e.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&cursor.PushedSeq, &cursor.PulledRevision)
	if errors.Is(err, sql.ErrNoRows) {
		return eventstore.Cursor{}, nil
	}

	if err != nil {
		return eventstore.Cursor{}, fmt.Errorf("load cursor %s: %w", remoteKey, err)
	}

	return cursor, nil
}

// SaveCursor upserts the cursor of a remote.
func (e *Engine) SaveCursor(ctx context.Context, remoteKey string, cursor eventstore.Cursor) error {
	sqlQuery, args, err := e.dialect.Insert(tableCursors).
		Rows(goqu.Record{
			colRemoteKey:      remoteKey,
			colPushedSeq:      cursor.PushedSeq,
			colPulledRevision: cursor.PulledRevision,
			colUpdatedAtMS:    time.Now().UTC().UnixMilli(),
		}).
		OnConflict(goqu.DoUpdate(colRemoteKey, goqu.Record{
			colPushedSeq:      goqu.L("excluded." + colPushedSeq),
			colPulledRevision: goqu.L("excluded." + colPulledRevision),
			colUpdatedAtMS:    goqu.L("excluded." + colUpdatedAtMS),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build cursor upsert: %w", err)
	}

	start := time.Now()
	err = e.writer.Do(context.WithoutCancel(ctx), func(ctx context.Context, tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, sqlQuery, args...)
		return execErr
	})
	e.logQueryWithDuration(ctx, sqlQuery, logActionCursor, time.Since(start))

	if err != nil {
		return fmt.Errorf("save cursor %s: %w", remoteKey, err)
	}

	return nil
}

// Close stops the writer after pending writes are committed.
func (e *Engine) Close() error {
	e.writer.Close()
	return nil
}

func (e *Engine) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	e.observer.LogDebug(ctx, logMsgSQLExecuted+action,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration),
		logAttrQuery, sqlQuery)
}
