package replication

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// LocalStore is the event log as seen by the manager. Remote events enter only through Append.
type LocalStore interface {
	Append(ctx context.Context, event eventstore.Event) (eventstore.Event, error)
	EventsAfterSeq(ctx context.Context, seq eventstore.SequenceNumber) (eventstore.Events, error)
	Contains(id uuid.UUID) bool
	DeviceID() string
	Pending() <-chan struct{}
}

// CursorStore persists the sync cursor per remote key.
type CursorStore interface {
	LoadCursor(ctx context.Context, remoteKey string) (eventstore.Cursor, error)
	SaveCursor(ctx context.Context, remoteKey string, cursor eventstore.Cursor) error
}
