package httpremote_test

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

type cursors struct {
	mu       sync.Mutex
	byRemote map[string]eventstore.Cursor
}

func newCursors() *cursors {
	return &cursors{byRemote: make(map[string]eventstore.Cursor)}
}

func (c *cursors) LoadCursor(_ context.Context, remoteKey string) (eventstore.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.byRemote[remoteKey], nil
}

func (c *cursors) SaveCursor(_ context.Context, remoteKey string, cursor eventstore.Cursor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byRemote[remoteKey] = cursor

	return nil
}
