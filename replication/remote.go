package replication

import (
	"context"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// Remote is the central store of a sync namespace.
// Implementations must be idempotent by event id: pushing an event twice stores it once.
type Remote interface {
	// Push stores events and acknowledges them.
	Push(ctx context.Context, namespace string, events eventstore.Events) (PushResult, error)

	// Pull returns at most limit events with a revision above afterRevision, in revision order.
	Pull(ctx context.Context, namespace string, afterRevision uint64, limit int) (PullResult, error)
}

// PushResult acknowledges a push.
type PushResult struct {
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Revision   uint64 `json:"revision"`
}

// PullResult is one page of remote events.
type PullResult struct {
	Events eventstore.Events `json:"events"`
	// Revision of the last returned event, or the requested revision if there were none.
	Revision uint64 `json:"revision"`
	HasMore  bool   `json:"hasMore"`
}

// RemoteFactory creates the remote for validated options.
// It returns ErrRemoteUnavailable if no remote can be used in this runtime.
type RemoteFactory func(options Options) (Remote, error)

// Watcher is implemented by remotes which announce new revisions of a namespace.
// The manager runs a cycle on every announcement. The channel closes when ctx ends or the watch breaks.
type Watcher interface {
	Watch(ctx context.Context, namespace string) (<-chan uint64, error)
}
