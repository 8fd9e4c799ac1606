package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type binding struct {
	key string
	set func(c *Config, raw string) error
}

func bindings() []binding {
	return []binding{
		{"POS_DEVICE_ID", setString(func(c *Config) *string { return &c.Device.ID })},
		{"POS_DATA_PATH", setString(func(c *Config) *string { return &c.Device.DataPath })},
		{"POS_LOCATION", setString(func(c *Config) *string { return &c.Device.Location })},
		{"POS_DAY_START", setDuration(func(c *Config) *time.Duration { return &c.Device.DayStart })},
		{"POS_CACHE_SIZE", setInt(func(c *Config) *int { return &c.Device.CacheSize })},
		{"POS_LISTEN_ADDRESS", setString(func(c *Config) *string { return &c.Device.ListenAddress })},

		{"POS_SYNC_ENABLED", setBool(func(c *Config) *bool { return &c.Sync.Enabled })},
		{"POS_SYNC_ENDPOINT", setString(func(c *Config) *string { return &c.Sync.Endpoint })},
		{"POS_SYNC_NAMESPACE", setString(func(c *Config) *string { return &c.Sync.Namespace })},
		{"POS_SYNC_INTERVAL", setDuration(func(c *Config) *time.Duration { return &c.Sync.Interval })},
		{"POS_SYNC_CYCLE_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Sync.CycleTimeout })},
		{"POS_SYNC_BATCH_SIZE", setInt(func(c *Config) *int { return &c.Sync.BatchSize })},
		{"POS_SYNC_RETRY_ATTEMPTS", setInt(func(c *Config) *int { return &c.Sync.RetryAttempts })},
		{"POS_SYNC_RETRY_BASE_DELAY", setDuration(func(c *Config) *time.Duration { return &c.Sync.RetryBaseDelay })},

		{"POS_HUB_LISTEN_ADDRESS", setString(func(c *Config) *string { return &c.Hub.ListenAddress })},
		{"POS_HUB_BACKEND", setString(func(c *Config) *string { return &c.Hub.Backend })},
		{"POS_POSTGRES_DSN", setString(func(c *Config) *string { return &c.Hub.Postgres.DSN })},
		{"POS_POSTGRES_REPLICA_DSN", setString(func(c *Config) *string { return &c.Hub.Postgres.ReplicaDSN })},
		{"POS_POSTGRES_DRIVER", setString(func(c *Config) *string { return &c.Hub.Postgres.Driver })},
		{"POS_POSTGRES_TABLE", setString(func(c *Config) *string { return &c.Hub.Postgres.TableName })},

		{"POS_SERVICE_NAME", setString(func(c *Config) *string { return &c.Observability.ServiceName })},
		{"POS_LOG_LEVEL", setString(func(c *Config) *string { return &c.Observability.LogLevel })},
		{"POS_LOG_FORMAT", setString(func(c *Config) *string { return &c.Observability.LogFormat })},
		{"POS_METRICS_ADDRESS", setString(func(c *Config) *string { return &c.Observability.MetricsAddress })},
		{"POS_METRICS_PREFIX", setString(func(c *Config) *string { return &c.Observability.MetricsPrefix })},
		{"POS_OTLP_ENDPOINT", setString(func(c *Config) *string { return &c.Observability.OTLPEndpoint })},
	}
}

// EnvKeys lists every environment variable ApplyEnv reads.
func EnvKeys() []string {
	all := bindings()
	keys := make([]string, 0, len(all))

	for _, b := range all {
		keys = append(keys, b.key)
	}

	return keys
}

// ApplyEnv overrides single settings from the environment. Set but empty variables count as set.
// All malformed values are reported together.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var causes []error

	for _, b := range bindings() {
		raw, ok := lookup(b.key)
		if !ok {
			continue
		}

		if err := b.set(c, raw); err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", b.key, err))
		}
	}

	if len(causes) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, causes...)...)
	}

	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}

		*field(c) = v

		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		*field(c) = v

		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}

		*field(c) = v

		return nil
	}
}
