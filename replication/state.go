package replication

import (
	"slices"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// State of the sync manager.
type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateActive      State = "active"
	StatePaused      State = "paused"
	StateStopped     State = "stopped"
	StateError       State = "error"
	StateUnavailable State = "unavailable"
)

var (
	configurableFrom = []State{StateIdle, StateConfiguring, StateStopped, StateError, StateUnavailable}
	startableFrom    = []State{StateConfiguring, StatePaused}
	syncingStates    = []State{StateActive, StatePaused}
)

func (s State) in(states []State) bool {
	return slices.Contains(states, s)
}

// Status is a snapshot of the manager for display.
type Status struct {
	State  State
	Reason string
	Online bool
	// Pending counts local events not yet acknowledged by the remote.
	Pending    int
	LastSyncAt time.Time
	Cursor     eventstore.Cursor
	Endpoint   string
	Namespace  string
}

// StateListener is called after every state change, outside of the manager's locks.
// It must not call Stop or Configure synchronously.
type StateListener func(status Status)
