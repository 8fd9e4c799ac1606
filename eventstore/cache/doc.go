// Package cache memoizes derived aggregates (balances, summaries, reports) computed by the read models.
//
// Correctness comes from invalidation, not expiry: entries carry no TTL. Every Key has a scope
// (one aggregate, a time range, or global) and the read models register which event types affect
// which kinds of entries. On each append the event log calls InvalidateFor, which removes only the
// entries the new event can affect. A bounded LRU caps memory; an eviction only causes a later miss.
package cache
