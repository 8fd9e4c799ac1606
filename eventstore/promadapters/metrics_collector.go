// Package promadapters implements eventstore.MetricsCollector on the Prometheus client library,
// for deployments that scrape the POS device and the sync hub instead of pushing OTLP.
package promadapters

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

var ErrNilRegistry = errors.New("prometheus registry must not be nil")

// Option configures a MetricsCollector.
type Option func(*MetricsCollector)

// WithNamespace prefixes every metric name, e.g. "pos" turns sync_state into pos_sync_state.
func WithNamespace(namespace string) Option {
	return func(c *MetricsCollector) {
		c.namespace = namespace
	}
}

// WithLabelNames fixes the label names of a metric up front.
// Without it, the label names of the first measurement are used.
func WithLabelNames(metric string, labelNames ...string) Option {
	return func(c *MetricsCollector) {
		c.labelNames[metric] = sortedCopy(labelNames)
	}
}

// WithBuckets overrides the default histogram buckets for all durations.
func WithBuckets(buckets []float64) Option {
	return func(c *MetricsCollector) {
		c.buckets = buckets
	}
}

// MetricsCollector creates CounterVec, HistogramVec and GaugeVec collectors on demand.
//
// Prometheus requires a fixed label set per metric name. Labels missing from a measurement are
// recorded as empty strings, labels not known to the metric are dropped.
type MetricsCollector struct {
	registry  *prometheus.Registry
	namespace string
	buckets   []float64

	mu         sync.Mutex
	labelNames map[string][]string
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

func NewMetricsCollector(registry *prometheus.Registry, opts ...Option) (*MetricsCollector, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}

	c := &MetricsCollector{
		registry:   registry,
		buckets:    prometheus.DefBuckets,
		labelNames: make(map[string][]string),
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Handler serves the registry in the Prometheus exposition format, for mounting on /metrics.
func (c *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.namesLocked(metric, labels)

	vec, ok := c.histograms[metric]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      metric,
			Help:      help(metric),
			Buckets:   c.buckets,
		}, names)

		if vec, ok = register(c.registry, vec); !ok {
			return
		}

		c.histograms[metric] = vec
	}

	vec.WithLabelValues(values(names, labels)...).Observe(duration.Seconds())
}

func (c *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.namesLocked(metric, labels)

	vec, ok := c.counters[metric]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      metric,
			Help:      help(metric),
		}, names)

		if vec, ok = register(c.registry, vec); !ok {
			return
		}

		c.counters[metric] = vec
	}

	vec.WithLabelValues(values(names, labels)...).Inc()
}

func (c *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.namesLocked(metric, labels)

	vec, ok := c.gauges[metric]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      metric,
			Help:      help(metric),
		}, names)

		if vec, ok = register(c.registry, vec); !ok {
			return
		}

		c.gauges[metric] = vec
	}

	vec.WithLabelValues(values(names, labels)...).Set(value)
}

// register returns the collector already registered under the same name when there is one,
// and false when the name is taken by a collector of another kind or label set.
func register[T prometheus.Collector](registry *prometheus.Registry, collector T) (T, bool) {
	err := registry.Register(collector)
	if err == nil {
		return collector, true
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(T)
		return existing, ok
	}

	return collector, false
}

func (c *MetricsCollector) namesLocked(metric string, labels map[string]string) []string {
	if names, ok := c.labelNames[metric]; ok {
		return names
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)
	c.labelNames[metric] = names

	return names
}

func values(names []string, labels map[string]string) []string {
	vals := make([]string, len(names))
	for i, name := range names {
		vals[i] = labels[name]
	}

	return vals
}

func sortedCopy(names []string) []string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)

	return slices.Compact(sorted)
}

func help(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}

var _ eventstore.MetricsCollector = (*MetricsCollector)(nil)
