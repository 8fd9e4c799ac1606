package cache

import (
	"strconv"
	"strings"
	"time"
)

// Kind names a family of cached values, e.g. "loyalty.balance".
type Kind string

// Scope defines which appended events can invalidate an entry.
type Scope int

const (
	// ScopeAggregate entries depend on the events of one aggregate.
	ScopeAggregate Scope = iota
	// ScopeRange entries depend on the events whose timestamp falls into [From, Until].
	ScopeRange
	// ScopeGlobal entries depend on every event of a registered type.
	ScopeGlobal
)

// Key is the deterministic signature of a query. It is comparable and used as map key.
type Key struct {
	Kind        Kind
	AggregateID string
	From        time.Time
	Until       time.Time
	// Variant distinguishes queries of the same kind and scope, e.g. a result limit.
	Variant string
}

// AggregateKey builds the key of a per-aggregate query.
func AggregateKey(kind Kind, aggregateID string) Key {
	return Key{Kind: kind, AggregateID: aggregateID}
}

// RangeKey builds the key of a time-range query. Bounds are normalized to UTC.
func RangeKey(kind Kind, from, until time.Time, variant string) Key {
	return Key{Kind: kind, From: from.UTC(), Until: until.UTC(), Variant: variant}
}

// GlobalKey builds the key of a query over all events of its registered types.
func GlobalKey(kind Kind, variant string) Key {
	return Key{Kind: kind, Variant: variant}
}

func (k Key) Scope() Scope {
	switch {
	case k.AggregateID != "":
		return ScopeAggregate
	case !k.From.IsZero() || !k.Until.IsZero():
		return ScopeRange
	default:
		return ScopeGlobal
	}
}

// Covers reports whether an event at the given time falls into a range key. Zero bounds are open.
func (k Key) Covers(at time.Time) bool {
	if !k.From.IsZero() && at.Before(k.From) {
		return false
	}

	if !k.Until.IsZero() && at.After(k.Until) {
		return false
	}

	return true
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))

	switch k.Scope() {
	case ScopeAggregate:
		b.WriteString(":aggregate:")
		b.WriteString(k.AggregateID)
	case ScopeRange:
		b.WriteString(":range:")
		b.WriteString(strconv.FormatInt(k.From.UnixMilli(), 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(k.Until.UnixMilli(), 10))
	case ScopeGlobal:
		b.WriteString(":global")
	}

	if k.Variant != "" {
		b.WriteByte(':')
		b.WriteString(k.Variant)
	}

	return b.String()
}
