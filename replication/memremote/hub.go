// Package memremote provides an in-process sync remote for tests, demos and single-host setups.
package memremote

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

var ErrHubUnreachable = errors.New("hub unreachable")

type revisioned struct {
	revision uint64
	event    eventstore.Event
}

type namespace struct {
	events []revisioned
	ids    map[uuid.UUID]struct{}
}

// Hub stores events per namespace, idempotent by event id. Each namespace has its own revisions starting at 1.
type Hub struct {
	mu          sync.RWMutex
	namespaces  map[string]*namespace
	unreachable atomic.Bool
}

func New() *Hub {
	return &Hub{namespaces: make(map[string]*namespace)}
}

// SetReachable simulates losing and regaining the connection to the hub.
func (h *Hub) SetReachable(reachable bool) {
	h.unreachable.Store(!reachable)
}

// Factory returns a RemoteFactory which always hands out this hub.
func (h *Hub) Factory() replication.RemoteFactory {
	return func(replication.Options) (replication.Remote, error) {
		return h, nil
	}
}

func (h *Hub) Push(ctx context.Context, ns string, events eventstore.Events) (replication.PushResult, error) {
	if err := h.check(ctx); err != nil {
		return replication.PushResult{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.namespace(ns)
	result := replication.PushResult{}

	for _, event := range events {
		if _, exists := n.ids[event.ID]; exists {
			result.Duplicates++
			continue
		}

		n.events = append(n.events, revisioned{revision: uint64(len(n.events)) + 1, event: event})
		n.ids[event.ID] = struct{}{}
		result.Accepted++
	}

	result.Revision = uint64(len(n.events))

	return result, nil
}

func (h *Hub) Pull(ctx context.Context, ns string, afterRevision uint64, limit int) (replication.PullResult, error) {
	if err := h.check(ctx); err != nil {
		return replication.PullResult{}, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	result := replication.PullResult{Revision: afterRevision}
	if limit <= 0 {
		limit = replication.DefaultBatchSize
	}

	n, found := h.namespaces[ns]
	if !found || afterRevision >= uint64(len(n.events)) {
		return result, nil
	}

	// Revisions are dense, so revision r sits at index r-1.
	remaining := n.events[afterRevision:]
	page := remaining[:min(limit, len(remaining))]

	result.Events = make(eventstore.Events, 0, len(page))
	for _, r := range page {
		result.Events = append(result.Events, r.event)
	}
	result.Revision = page[len(page)-1].revision
	result.HasMore = len(remaining) > len(page)

	return result, nil
}

// Events returns all events of a namespace in revision order.
func (h *Hub) Events(ns string) eventstore.Events {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n, found := h.namespaces[ns]
	if !found {
		return nil
	}

	events := make(eventstore.Events, 0, len(n.events))
	for _, r := range n.events {
		events = append(events, r.event)
	}

	return slices.Clip(events)
}

func (h *Hub) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.unreachable.Load() {
		return errors.Join(replication.ErrSyncConnectivity, ErrHubUnreachable)
	}

	return nil
}

func (h *Hub) namespace(ns string) *namespace {
	n, found := h.namespaces[ns]
	if !found {
		n = &namespace{ids: make(map[uuid.UUID]struct{})}
		h.namespaces[ns] = n
	}

	return n
}
