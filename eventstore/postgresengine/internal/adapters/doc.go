// Package adapters lets the remote store run on pgxpool.Pool, sql.DB or sqlx.DB behind one interface.
package adapters
