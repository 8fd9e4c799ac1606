// Package postgresengine stores the events of all devices centrally in PostgreSQL.
// Payloads are kept as JSON, not JSONB, so they replicate byte for byte.
//
// RemoteStore is the backend of the sync hub and implements replication.Remote:
// Push inserts with ON CONFLICT DO NOTHING, so events are stored once per namespace and id,
// and every stored event gets a BIGSERIAL revision which Pull pages by.
//
// It runs on pgxpool.Pool, sql.DB (lib/pq) or sqlx.DB. SQL is built with goqu.
package postgresengine
