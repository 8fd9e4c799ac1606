package main

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/pos-eventstore-go/config"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/eventlog"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/index"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/loyalty"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/payments"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/reporting"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/sales"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

// storage is what the device needs from a storage engine: the event log medium and the sync cursors.
type storage interface {
	eventlog.Storage
	replication.CursorStore
}

// device wires the event log, the query engines and the sync manager of one terminal.
type device struct {
	cfg       config.Config
	store     *eventlog.Store
	cache     *cache.Cache
	loyalty   *loyalty.Engine
	payments  *payments.Engine
	sales     *sales.Engine
	reporting *reporting.Engine
	sync      *replication.Manager
}

func newDevice(
	ctx context.Context,
	cfg config.Config,
	telemetry *config.Telemetry,
	medium storage,
	factory replication.RemoteFactory,
) (*device, error) {
	calendar, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}

	queryCache, err := cache.New(cfg.Device.CacheSize,
		cache.WithContextualLogger(telemetry.ContextualLogger),
		cache.WithMetrics(telemetry.Metrics),
	)
	if err != nil {
		return nil, err
	}

	store, err := eventlog.NewStore(medium, index.New(calendar),
		eventlog.WithDeviceID(cfg.Device.ID),
		eventlog.WithCache(queryCache),
		eventlog.WithContextualLogger(telemetry.ContextualLogger),
		eventlog.WithMetrics(telemetry.Metrics),
		eventlog.WithTracing(telemetry.Tracing),
	)
	if err != nil {
		return nil, err
	}

	if err := store.Open(ctx); err != nil {
		return nil, err
	}

	d := &device{cfg: cfg, store: store, cache: queryCache}

	if err := d.buildEngines(telemetry); err != nil {
		return nil, err
	}

	managerOptions := []replication.ManagerOption{
		replication.WithContextualLogger(telemetry.ContextualLogger),
		replication.WithMetrics(telemetry.Metrics),
	}
	if telemetry.Tracing != nil {
		managerOptions = append(managerOptions, replication.WithTracing(telemetry.Tracing))
	}

	d.sync, err = replication.NewManager(store, medium, factory, managerOptions...)
	if err != nil {
		return nil, err
	}

	return d, nil
}

func (d *device) buildEngines(telemetry *config.Telemetry) error {
	engineOptions := []shell.Option{
		shell.WithCache(d.cache),
		shell.WithContextualLogger(telemetry.ContextualLogger),
		shell.WithMetrics(telemetry.Metrics),
		shell.WithTracing(telemetry.Tracing),
	}

	var err error

	if d.loyalty, err = loyalty.NewEngine(d.store, engineOptions...); err != nil {
		return err
	}

	if d.payments, err = payments.NewEngine(d.store, engineOptions...); err != nil {
		return err
	}

	if d.sales, err = sales.NewEngine(d.store, engineOptions...); err != nil {
		return err
	}

	d.reporting, err = reporting.NewEngine(d.store, d.sales, d.payments, engineOptions...)

	return err
}

// startSync configures and starts replication when enabled. A failed first connection leaves the
// manager in its error state and is not fatal: the terminal keeps working offline.
func (d *device) startSync(ctx context.Context) error {
	if !d.cfg.Sync.Enabled {
		return nil
	}

	if err := d.sync.Configure(ctx, d.cfg.SyncOptions()); err != nil {
		if errors.Is(err, replication.ErrRemoteUnavailable) {
			return nil
		}

		return err
	}

	if err := d.sync.Start(ctx); err != nil && !errors.Is(err, replication.ErrSyncConnectivity) {
		return err
	}

	return nil
}

func (d *device) stop(ctx context.Context) error {
	return d.sync.Stop(ctx)
}
