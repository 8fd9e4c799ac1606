package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/postgresengine/internal/adapters"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

const maxPullLimit = 1000

// RemoteStore keeps the events of every namespace in one table. It is safe for concurrent use.
type RemoteStore struct {
	db        adapters.DBAdapter
	tableName string
	observer  eventstore.Observer

	// Revisions are handed out by a sequence, so concurrent pushes could commit out of revision order
	// and a pull in between would skip the lower revision for good. Pushes are serialized.
	pushMu sync.Mutex
}

func newRemoteStore(db adapters.DBAdapter, options ...Option) (*RemoteStore, error) {
	rs := &RemoteStore{
		db:        db,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(rs); err != nil {
			return nil, err
		}
	}

	return rs, nil
}

// NewRemoteStoreFromPGXPool creates a RemoteStore on a pgx pool.
func NewRemoteStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*RemoteStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newRemoteStore(adapters.NewPGXAdapter(db), options...)
}

// NewRemoteStoreFromPGXPoolAndReplica pulls from the replica and pushes to the primary.
func NewRemoteStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*RemoteStore, error) {
	if db == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newRemoteStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewRemoteStoreFromSQLDB creates a RemoteStore on a sql.DB, e.g. opened with the lib/pq driver.
func NewRemoteStoreFromSQLDB(db *sql.DB, options ...Option) (*RemoteStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newRemoteStore(adapters.NewSQLAdapter(db), options...)
}

func NewRemoteStoreFromSQLX(db *sqlx.DB, options ...Option) (*RemoteStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newRemoteStore(adapters.NewSQLXAdapter(db), options...)
}

// Migrate creates the events table if it does not exist.
func (rs *RemoteStore) Migrate(ctx context.Context) error {
	for _, statement := range schemaStatements(rs.tableName) {
		start := time.Now()
		if _, err := rs.db.Exec(ctx, statement); err != nil {
			return rs.fail(ctx, operationMigrate, errorTypeDatabase, fmt.Errorf("migrate %s: %w", rs.tableName, err))
		}
		rs.logQueryWithDuration(ctx, statement, operationMigrate, time.Since(start))
	}

	rs.observer.LogInfo(ctx, logMsgOperation+operationMigrate, "table", rs.tableName)

	return nil
}

// Push stores the events which are new to the namespace.
func (rs *RemoteStore) Push(ctx context.Context, namespace string, events eventstore.Events) (replication.PushResult, error) {
	ctx, span := rs.observer.StartSpan(ctx, spanNamePush, map[string]string{logAttrNamespace: namespace})
	start := time.Now()

	rs.pushMu.Lock()
	defer rs.pushMu.Unlock()

	result := replication.PushResult{}

	if len(events) > 0 {
		sqlQuery, args, err := buildPushQuery(rs.tableName, namespace, events)
		if err != nil {
			return rs.failPush(ctx, span, errorTypeBuildQuery, err)
		}

		accepted, err := rs.countReturned(ctx, sqlQuery, args)
		if err != nil {
			return rs.failPush(ctx, span, errorTypeDatabase, err)
		}
		rs.logQueryWithDuration(ctx, sqlQuery, operationPush, time.Since(start))

		result.Accepted = accepted
		result.Duplicates = len(events) - accepted
	}

	revision, err := rs.headRevision(ctx, namespace)
	if err != nil {
		return rs.failPush(ctx, span, errorTypeDatabase, err)
	}
	result.Revision = revision

	duration := time.Since(start)
	rs.observer.LogInfo(ctx, logMsgOperation+operationPush,
		logAttrNamespace, namespace,
		logAttrAccepted, result.Accepted,
		logAttrDuplicates, result.Duplicates,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration))
	rs.observer.RecordDuration(ctx, metricPushDuration, duration, map[string]string{
		eventstore.LabelOperation: operationPush,
		eventstore.LabelStatus:    eventstore.StatusSuccess,
	})
	for range result.Accepted {
		rs.observer.IncrementCounter(ctx, metricEventsAccepted, map[string]string{logAttrNamespace: namespace})
	}
	rs.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{logAttrAccepted: strconv.Itoa(result.Accepted)})

	return result, nil
}

// Pull returns the next page of a namespace in revision order.
func (rs *RemoteStore) Pull(ctx context.Context, namespace string, afterRevision uint64, limit int) (replication.PullResult, error) {
	ctx, span := rs.observer.StartSpan(ctx, spanNamePull, map[string]string{logAttrNamespace: namespace})
	start := time.Now()

	if limit <= 0 {
		limit = replication.DefaultBatchSize
	}
	limit = min(limit, maxPullLimit)

	sqlQuery, args, err := buildPullQuery(rs.tableName, namespace, afterRevision, limit)
	if err != nil {
		return rs.failPull(ctx, span, errorTypeBuildQuery, err)
	}

	rows, err := rs.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return rs.failPull(ctx, span, errorTypeDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	result := replication.PullResult{Revision: afterRevision, Events: eventstore.Events{}}

	for rows.Next() {
		if len(result.Events) == limit {
			result.HasMore = true
			break
		}

		revision, event, err := scanEvent(rows)
		if err != nil {
			return rs.failPull(ctx, span, errorTypeScan, err)
		}

		result.Events = append(result.Events, event)
		result.Revision = revision
	}

	if err := rows.Err(); err != nil {
		return rs.failPull(ctx, span, errorTypeDatabase, err)
	}

	duration := time.Since(start)
	rs.logQueryWithDuration(ctx, sqlQuery, operationPull, duration)
	rs.observer.RecordDuration(ctx, metricPullDuration, duration, map[string]string{
		eventstore.LabelOperation: operationPull,
		eventstore.LabelStatus:    eventstore.StatusSuccess,
	})
	rs.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{
		eventstore.LogAttrCount: strconv.Itoa(len(result.Events)),
	})

	return result, nil
}

// Close releases the database connection.
func (rs *RemoteStore) Close() error {
	return rs.db.Close()
}

func (rs *RemoteStore) countReturned(ctx context.Context, sqlQuery string, args []any) (int, error) {
	rows, err := rs.db.QueryPrimary(ctx, sqlQuery, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	count := 0
	for rows.Next() {
		count++
	}

	return count, rows.Err()
}

func (rs *RemoteStore) headRevision(ctx context.Context, namespace string) (uint64, error) {
	sqlQuery, args, err := buildHeadRevisionQuery(rs.tableName, namespace)
	if err != nil {
		return 0, err
	}

	rows, err := rs.db.QueryPrimary(ctx, sqlQuery, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var revision int64
	if rows.Next() {
		if err := rows.Scan(&revision); err != nil {
			return 0, err
		}
	}

	return uint64(revision), rows.Err() //nolint:gosec // BIGSERIAL is positive
}

func scanEvent(rows adapters.DBRows) (uint64, eventstore.Event, error) {
	var (
		revision      int64
		eventID       string
		eventType     string
		occurredAt    time.Time
		aggregateID   string
		aggregateType string
		payload       []byte
		origin        string
		originSeq     int64
	)

	if err := rows.Scan(&revision, &eventID, &eventType, &occurredAt, &aggregateID, &aggregateType, &payload, &origin, &originSeq); err != nil {
		return 0, eventstore.Event{}, err
	}

	id, err := uuid.Parse(eventID)
	if err != nil {
		return 0, eventstore.Event{}, errors.Join(eventstore.ErrNilEventID, err)
	}

	event, err := eventstore.RebuildEvent(
		id,
		eventType,
		eventstore.Aggregate{ID: aggregateID, Type: aggregateType},
		occurredAt,
		payload,
		eventstore.SequenceNumber(originSeq), //nolint:gosec // stored from a uint64
		origin,
	)
	if err != nil {
		return 0, eventstore.Event{}, err
	}

	return uint64(revision), event, nil //nolint:gosec // BIGSERIAL is positive
}

func (rs *RemoteStore) failPush(
	ctx context.Context,
	span eventstore.SpanContext,
	errorType string,
	err error,
) (replication.PushResult, error) {

	rs.observer.FinishSpan(span, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: errorType})

	return replication.PushResult{}, rs.fail(ctx, operationPush, errorType, errors.Join(eventstore.ErrPersistence, err))
}

func (rs *RemoteStore) failPull(
	ctx context.Context,
	span eventstore.SpanContext,
	errorType string,
	err error,
) (replication.PullResult, error) {

	rs.observer.FinishSpan(span, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: errorType})

	return replication.PullResult{}, rs.fail(ctx, operationPull, errorType, err)
}

func (rs *RemoteStore) fail(ctx context.Context, operation, errorType string, err error) error {
	rs.observer.LogError(ctx, logMsgFailed, err,
		eventstore.LabelOperation, operation,
		eventstore.LabelErrorType, errorType)
	rs.observer.IncrementCounter(ctx, metricDatabaseErrors, map[string]string{
		eventstore.LabelOperation: operation,
		eventstore.LabelErrorType: errorType,
	})

	return err
}

func (rs *RemoteStore) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	rs.observer.LogDebug(ctx, logMsgSQLExecuted+action,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration),
		logAttrQuery, sqlQuery)
}
