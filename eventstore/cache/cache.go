package cache

import (
	"context"
	"errors"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

const (
	DefaultSize = 1024

	metricHits          = "cache_hits_total"
	metricMisses        = "cache_misses_total"
	metricEvictions     = "cache_evictions_total"
	metricInvalidations = "cache_invalidations_total"
	metricEntries       = "cache_entries"
	labelKind           = "kind"

	logMsgInvalidated     = "cache entries invalidated"
	logMsgStaleDiscarded  = "discarded value computed during invalidation"
	logMsgTypeMismatch    = "cached value has unexpected type"
	logAttrInvalidatedKey = "key"
)

var ErrInvalidSize = errors.New("cache size must be positive")

// Cache is a bounded LRU of derived values with scoped invalidation. It is safe for concurrent use.
type Cache struct {
	mu           sync.Mutex
	entries      *lru.Cache[Key, any]
	dependencies map[string][]Kind
	// epoch increases on every invalidation; a value computed across an epoch change is not stored.
	epoch uint64
	// removing is set while entries are removed on purpose, so the evict callback skips counting them.
	removing bool
	observer eventstore.Observer
}

// Option defines a functional option for configuring Cache.
type Option func(*Cache) error

// WithLogger sets the logger for the Cache.
func WithLogger(logger eventstore.Logger) Option {
	return func(c *Cache) error {
		c.observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for the Cache.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(c *Cache) error {
		c.observer.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for hit, miss, eviction and invalidation counters.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(c *Cache) error {
		c.observer.Metrics = collector
		return nil
	}
}

// New creates a Cache holding at most size entries.
func New(size int, options ...Option) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Cache{dependencies: make(map[string][]Kind)}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	entries, err := lru.NewWithEvict[Key, any](size, func(key Key, _ any) {
		if c.removing {
			return
		}
		c.observer.IncrementCounter(context.Background(), metricEvictions, map[string]string{labelKind: string(key.Kind)})
	})
	if err != nil {
		return nil, err
	}

	c.entries = entries

	return c, nil
}

// RegisterDependency declares that appending an event of any of the given types affects entries of kind.
// Registering the same pair twice is a no-op.
func (c *Cache) RegisterDependency(kind Kind, eventTypes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, eventType := range eventTypes {
		if !slices.Contains(c.dependencies[eventType], kind) {
			c.dependencies[eventType] = append(c.dependencies[eventType], kind)
		}
	}
}

// DependentKinds returns the kinds affected by an event type.
func (c *Cache) DependentKinds(eventType string) []Kind {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.dependencies[eventType])
}

// RegisteredEventTypes returns every event type with at least one dependent kind.
func (c *Cache) RegisteredEventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	eventTypes := make([]string, 0, len(c.dependencies))
	for eventType := range c.dependencies {
		eventTypes = append(eventTypes, eventType)
	}
	slices.Sort(eventTypes)

	return eventTypes
}

// GetOrCompute returns the cached value for key or computes, stores and returns it.
// Errors from compute are returned and nothing is stored. A nil Cache always computes.
func GetOrCompute[T any](ctx context.Context, c *Cache, key Key, compute func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}

	labels := map[string]string{labelKind: string(key.Kind)}

	c.mu.Lock()
	cached, found := c.entries.Get(key)
	epoch := c.epoch
	c.mu.Unlock()

	if found {
		if value, ok := cached.(T); ok {
			c.observer.IncrementCounter(ctx, metricHits, labels)
			return value, nil
		}

		c.observer.LogWarn(ctx, logMsgTypeMismatch, logAttrInvalidatedKey, key.String())
	}

	c.observer.IncrementCounter(ctx, metricMisses, labels)

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		c.observer.LogDebug(ctx, logMsgStaleDiscarded, logAttrInvalidatedKey, key.String())
		return value, nil
	}

	c.entries.Add(key, value)
	c.observer.RecordValue(ctx, metricEntries, float64(c.entries.Len()), nil)

	return value, nil
}

// Get returns the cached value for key without computing it.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Get(key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Len()
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.removing = true
	defer func() { c.removing = false }()

	return c.entries.Remove(key)
}

// InvalidateByAggregate removes every entry scoped to the aggregate, regardless of kind.
func (c *Cache) InvalidateByAggregate(aggregateID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.removeWhere(func(key Key) bool {
		return key.Scope() == ScopeAggregate && key.AggregateID == aggregateID
	})
}

// InvalidateFor removes the entries an appended event can affect:
// aggregate entries of that aggregate, range entries covering its timestamp and global entries,
// restricted to the kinds registered for its type. It returns the number of removed entries.
func (c *Cache) InvalidateFor(ctx context.Context, event eventstore.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kinds := c.dependencies[event.Type]
	if len(kinds) == 0 {
		return 0
	}

	removed := c.removeWhere(func(key Key) bool {
		if !slices.Contains(kinds, key.Kind) {
			return false
		}

		switch key.Scope() {
		case ScopeAggregate:
			return key.AggregateID == event.Aggregate.ID
		case ScopeRange:
			return key.Covers(event.At)
		default:
			return true
		}
	})

	if removed > 0 {
		c.observer.LogDebug(ctx, logMsgInvalidated,
			eventstore.LogAttrEventType, event.Type,
			eventstore.LogAttrAggregate, event.Aggregate.ID,
			eventstore.LogAttrCount, removed)
	}

	return removed
}

// Purge removes all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.removing = true
	c.entries.Purge()
	c.removing = false
}

func (c *Cache) removeWhere(match func(Key) bool) int {
	c.epoch++
	c.removing = true
	defer func() { c.removing = false }()

	removed := 0
	for _, key := range c.entries.Keys() {
		if match(key) && c.entries.Remove(key) {
			removed++
			c.observer.IncrementCounter(context.Background(), metricInvalidations, map[string]string{labelKind: string(key.Kind)})
		}
	}

	return removed
}
