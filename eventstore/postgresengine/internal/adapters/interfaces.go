package adapters

import "context"

// DBAdapter runs parameterized statements with $n placeholders.
// Query may be served by a replica, QueryPrimary never is.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	QueryPrimary(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
	Close() error
}

type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type DBResult interface {
	RowsAffected() (int64, error)
}
