package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrReadConfig    = errors.New("read config")
)

// Postgres drivers the hub can open the central store with.
const (
	DriverPGX  = "pgx"
	DriverSQL  = "sql"
	DriverSQLX = "sqlx"
)

// Hub backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Device struct {
	ID            string        `yaml:"id"`
	DataPath      string        `yaml:"data_path"`
	Location      string        `yaml:"location"`
	DayStart      time.Duration `yaml:"day_start"`
	CacheSize     int           `yaml:"cache_size"`
	ListenAddress string        `yaml:"listen_address"`
}

type Sync struct {
	Enabled        bool          `yaml:"enabled"`
	Endpoint       string        `yaml:"endpoint"`
	Namespace      string        `yaml:"namespace"`
	Interval       time.Duration `yaml:"interval"`
	CycleTimeout   time.Duration `yaml:"cycle_timeout"`
	BatchSize      int           `yaml:"batch_size"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

type Postgres struct {
	DSN        string `yaml:"dsn"`
	ReplicaDSN string `yaml:"replica_dsn"`
	Driver     string `yaml:"driver"`
	TableName  string `yaml:"table_name"`
	MaxConns   int32  `yaml:"max_conns"`
}

type Hub struct {
	ListenAddress string   `yaml:"listen_address"`
	Backend       string   `yaml:"backend"`
	Postgres      Postgres `yaml:"postgres"`
}

type Observability struct {
	ServiceName    string `yaml:"service_name"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsAddress string `yaml:"metrics_address"`
	MetricsPrefix  string `yaml:"metrics_prefix"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

type Config struct {
	Device        Device        `yaml:"device"`
	Sync          Sync          `yaml:"sync"`
	Hub           Hub           `yaml:"hub"`
	Observability Observability `yaml:"observability"`
}

// Default returns the settings used for everything the file and the environment leave out.
func Default() Config {
	syncDefaults := replication.Options{}.WithDefaults()

	return Config{
		Device: Device{
			DataPath:      "pos.db",
			Location:      "UTC",
			CacheSize:     cache.DefaultSize,
			ListenAddress: ":8080",
		},
		Sync: Sync{
			Interval:       syncDefaults.Interval,
			CycleTimeout:   syncDefaults.CycleTimeout,
			BatchSize:      syncDefaults.BatchSize,
			RetryAttempts:  syncDefaults.RetryAttempts,
			RetryBaseDelay: syncDefaults.RetryBaseDelay,
		},
		Hub: Hub{
			ListenAddress: ":9090",
			Backend:       BackendMemory,
			Postgres: Postgres{
				Driver:   DriverPGX,
				MaxConns: 8,
			},
		},
		Observability: Observability{
			ServiceName:    "pos",
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsAddress: ":9108",
		},
	}
}

// Load reads the YAML file at path on top of Default, then applies the environment.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Join(ErrReadConfig, err)
		}

		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Join(ErrReadConfig, fmt.Errorf("parse yaml %s: %w", path, err))
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings that are used regardless of the binary.
// Sync options are validated by the replication manager when sync is configured.
func (c Config) Validate() error {
	var causes []error

	if _, err := c.Calendar(); err != nil {
		causes = append(causes, err)
	}

	if c.Device.CacheSize <= 0 {
		causes = append(causes, fmt.Errorf("device.cache_size must be positive, got %d", c.Device.CacheSize))
	}

	if c.Sync.Enabled {
		if err := c.SyncOptions().Validate(); err != nil {
			causes = append(causes, err)
		}
	}

	if !slices.Contains([]string{BackendMemory, BackendPostgres}, c.Hub.Backend) {
		causes = append(causes, fmt.Errorf("hub.backend must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Hub.Backend))
	}

	if c.Hub.Backend == BackendPostgres {
		if c.Hub.Postgres.DSN == "" {
			causes = append(causes, errors.New("hub.postgres.dsn is required for the postgres backend"))
		}

		if !slices.Contains([]string{DriverPGX, DriverSQL, DriverSQLX}, c.Hub.Postgres.Driver) {
			causes = append(causes, fmt.Errorf("hub.postgres.driver %q is not supported", c.Hub.Postgres.Driver))
		}
	}

	if _, err := c.Observability.SlogLevel(); err != nil {
		causes = append(causes, err)
	}

	if len(causes) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, causes...)...)
	}

	return nil
}

// Calendar builds the business calendar from device.location and device.day_start.
func (c Config) Calendar() (eventstore.BusinessCalendar, error) {
	location, err := time.LoadLocation(c.Device.Location)
	if err != nil {
		return eventstore.BusinessCalendar{}, fmt.Errorf("device.location: %w", err)
	}

	return eventstore.NewBusinessCalendar(location, c.Device.DayStart)
}

// SyncOptions converts the sync section for replication.Manager.Configure.
func (c Config) SyncOptions() replication.Options {
	return replication.Options{
		Endpoint:       c.Sync.Endpoint,
		Namespace:      c.Sync.Namespace,
		Interval:       c.Sync.Interval,
		CycleTimeout:   c.Sync.CycleTimeout,
		BatchSize:      c.Sync.BatchSize,
		RetryAttempts:  c.Sync.RetryAttempts,
		RetryBaseDelay: c.Sync.RetryBaseDelay,
	}.WithDefaults()
}
