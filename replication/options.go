package replication

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"
)

const (
	DefaultInterval       = 30 * time.Second
	DefaultCycleTimeout   = 10 * time.Second
	DefaultBatchSize      = 100
	DefaultRetryAttempts  = 4
	DefaultRetryBaseDelay = 200 * time.Millisecond
)

var namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// Options configure a sync session. Zero durations and sizes take the defaults.
type Options struct {
	Endpoint  string
	Namespace string
	// Interval between periodic cycles; appends and network restores trigger cycles in between.
	Interval time.Duration
	// CycleTimeout bounds every single call to the remote.
	CycleTimeout   time.Duration
	BatchSize      int
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// WithDefaults returns a copy with defaults for unset fields.
func (o Options) WithDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.CycleTimeout <= 0 {
		o.CycleTimeout = DefaultCycleTimeout
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}

	return o
}

// Validate checks endpoint and namespace.
func (o Options) Validate() error {
	var causes []error

	endpoint, err := url.Parse(o.Endpoint)
	switch {
	case err != nil:
		causes = append(causes, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err))
	case endpoint.Scheme != "http" && endpoint.Scheme != "https":
		causes = append(causes, fmt.Errorf("%w: scheme %q", ErrInvalidEndpoint, endpoint.Scheme))
	case endpoint.Host == "":
		causes = append(causes, fmt.Errorf("%w: missing host", ErrInvalidEndpoint))
	}

	if !ValidNamespace(o.Namespace) {
		causes = append(causes, fmt.Errorf("%w: %q", ErrInvalidNamespace, o.Namespace))
	}

	if len(causes) > 0 {
		return errors.Join(append([]error{ErrInvalidOptions}, causes...)...)
	}

	return nil
}

// ValidNamespace reports whether the namespace can be used on the wire.
func ValidNamespace(namespace string) bool {
	return namespacePattern.MatchString(namespace)
}

// RemoteKey identifies the cursor of an endpoint and namespace.
func (o Options) RemoteKey() string {
	return o.Endpoint + "#" + o.Namespace
}
