// Package config loads the settings of the POS device and the sync hub.
//
// Settings come from a YAML file, then POS_* environment variables override single values.
// The package also turns settings into ready-to-use infrastructure: the business calendar,
// the replication options, a slog logger, PostgreSQL connections for the hub and
// OpenTelemetry providers.
package config
