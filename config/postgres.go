package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/postgresengine"
)

const (
	pgMaxConnLifetime   = time.Hour
	pgMaxConnIdleTime   = 5 * time.Minute
	pgHealthCheckPeriod = time.Minute
	pgConnectTimeout    = 5 * time.Second
)

// PGXPoolConfig parses a DSN into a pool config with the hub's pool limits.
func (p Postgres) PGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	poolConfig.MaxConns = p.MaxConns
	poolConfig.MinConns = min(2, p.MaxConns)
	poolConfig.MaxConnLifetime = pgMaxConnLifetime
	poolConfig.MaxConnIdleTime = pgMaxConnIdleTime
	poolConfig.HealthCheckPeriod = pgHealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = pgConnectTimeout

	return poolConfig, nil
}

// OpenRemoteStore connects with the configured driver, creates the schema and returns the
// central store of the sync hub. Closing the store closes the connections.
func (p Postgres) OpenRemoteStore(ctx context.Context, options ...postgresengine.Option) (*postgresengine.RemoteStore, error) {
	if p.TableName != "" {
		options = append([]postgresengine.Option{postgresengine.WithTableName(p.TableName)}, options...)
	}

	var (
		store *postgresengine.RemoteStore
		err   error
	)

	switch p.Driver {
	case DriverSQL:
		store, err = p.openSQL(ctx, options)
	case DriverSQLX:
		store, err = p.openSQLX(ctx, options)
	default:
		store, err = p.openPGX(ctx, options)
	}

	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

func (p Postgres) openPGX(ctx context.Context, options []postgresengine.Option) (*postgresengine.RemoteStore, error) {
	primary, err := p.newPool(ctx, p.DSN)
	if err != nil {
		return nil, err
	}

	if p.ReplicaDSN == "" {
		return p.closeOnError(postgresengine.NewRemoteStoreFromPGXPool(primary, options...))(primary.Close)
	}

	replica, err := p.newPool(ctx, p.ReplicaDSN)
	if err != nil {
		primary.Close()
		return nil, err
	}

	return p.closeOnError(postgresengine.NewRemoteStoreFromPGXPoolAndReplica(primary, replica, options...))(
		primary.Close, replica.Close,
	)
}

func (p Postgres) newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := p.PGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

func (p Postgres) openSQL(ctx context.Context, options []postgresengine.Option) (*postgresengine.RemoteStore, error) {
	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	p.limitPool(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return p.closeOnError(postgresengine.NewRemoteStoreFromSQLDB(db, options...))(func() { _ = db.Close() })
}

func (p Postgres) openSQLX(ctx context.Context, options []postgresengine.Option) (*postgresengine.RemoteStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", p.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	p.limitPool(db.DB)

	return p.closeOnError(postgresengine.NewRemoteStoreFromSQLX(db, options...))(func() { _ = db.Close() })
}

func (p Postgres) limitPool(db *sql.DB) {
	db.SetMaxOpenConns(int(p.MaxConns))
	db.SetMaxIdleConns(int(p.MaxConns))
	db.SetConnMaxLifetime(pgMaxConnLifetime)
	db.SetConnMaxIdleTime(pgMaxConnIdleTime)
}

// closeOnError releases the connections when the store could not be created.
func (p Postgres) closeOnError(
	store *postgresengine.RemoteStore,
	err error,
) func(closers ...func()) (*postgresengine.RemoteStore, error) {
	return func(closers ...func()) (*postgresengine.RemoteStore, error) {
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}

			return nil, err
		}

		return store, nil
	}
}
