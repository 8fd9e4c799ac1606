package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// Manager replicates the local event log with one remote namespace.
// All methods are safe for concurrent use; at most one sync cycle runs at a time.
type Manager struct {
	store     LocalStore
	cursors   CursorStore
	factory   RemoteFactory
	observer  eventstore.Observer
	listeners []StateListener
	clock     func() time.Time

	mu         sync.Mutex
	state      State
	reason     string
	online     bool
	options    Options
	remote     Remote
	cursor     eventstore.Cursor
	lastSyncAt time.Time
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	cycleMu sync.Mutex
	wake    chan struct{}
}

// NewManager creates an idle Manager. The network is assumed to be online until told otherwise.
func NewManager(store LocalStore, cursors CursorStore, factory RemoteFactory, options ...ManagerOption) (*Manager, error) {
	if store == nil || cursors == nil {
		return nil, ErrMissingStore
	}

	if factory == nil {
		return nil, ErrMissingFactory
	}

	m := &Manager{
		store:   store,
		cursors: cursors,
		factory: factory,
		clock:   time.Now,
		state:   StateIdle,
		online:  true,
		wake:    make(chan struct{}, 1),
	}

	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Configure validates the options and prepares the remote. It is allowed from idle, configuring,
// stopped, error and unavailable. Invalid options move to error and leave the previous session untouched.
func (m *Manager) Configure(ctx context.Context, options Options) error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if !state.in(configurableFrom) {
		return fmt.Errorf("%w: configure from %s", ErrInvalidTransition, state)
	}

	options = options.WithDefaults()
	if err := options.Validate(); err != nil {
		m.transition(ctx, configurableFrom, StateError, err.Error())
		return err
	}

	if err := m.stopLoop(ctx); err != nil {
		return err
	}

	remote, err := m.factory(options)
	if err != nil {
		to := StateError
		if errors.Is(err, ErrRemoteUnavailable) {
			to = StateUnavailable
		}
		m.transition(ctx, configurableFrom, to, err.Error())

		return err
	}

	cursor, err := m.cursors.LoadCursor(ctx, options.RemoteKey())
	if err != nil {
		closeRemote(remote)
		err = errors.Join(eventstore.ErrPersistence, fmt.Errorf("load sync cursor: %w", err))
		m.transition(ctx, configurableFrom, StateError, err.Error())

		return err
	}

	m.mu.Lock()
	if !m.state.in(configurableFrom) {
		state = m.state
		m.mu.Unlock()
		closeRemote(remote)

		return fmt.Errorf("%w: configure from %s", ErrInvalidTransition, state)
	}

	previous := m.remote
	m.remote, m.options, m.cursor = remote, options, cursor
	from, changed := m.setLocked(StateConfiguring, "")
	status := m.statusLocked()
	m.mu.Unlock()

	closeRemote(previous)
	if changed {
		m.publish(ctx, from, status)
	}

	return nil
}

// Start connects with a first cycle and starts the background loop.
// It is allowed from configuring and paused. When the network is offline it goes to paused
// and leaves the first cycle to the network restore.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	state, online := m.state, m.online
	m.mu.Unlock()

	if !state.in(startableFrom) {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, state)
	}

	if !online {
		if !m.transition(ctx, startableFrom, StatePaused, reasonNetworkOffline) {
			return fmt.Errorf("%w: state changed during start", ErrInvalidTransition)
		}
		m.ensureLoop()

		return nil
	}

	if err := m.runCycle(ctx); err != nil {
		m.transition(ctx, startableFrom, StateError, err.Error())
		return err
	}

	if !m.transition(ctx, startableFrom, StateActive, "") {
		return fmt.Errorf("%w: state changed during start", ErrInvalidTransition)
	}
	m.ensureLoop()

	return nil
}

// Stop cancels the background loop, waits for the running cycle and moves to stopped.
// It is allowed from every state.
func (m *Manager) Stop(ctx context.Context) error {
	if err := m.stopLoop(ctx); err != nil {
		return err
	}

	m.cycleMu.Lock()
	m.mu.Lock()
	remote := m.remote
	m.remote = nil
	from, changed := m.setLocked(StateStopped, "")
	status := m.statusLocked()
	m.mu.Unlock()
	m.cycleMu.Unlock()

	closeRemote(remote)
	if changed {
		m.publish(ctx, from, status)
	}

	return nil
}

// SetNetworkOnline records the connectivity reported by the platform.
// Going offline pauses an active manager; coming back online wakes the loop, which resumes to active.
func (m *Manager) SetNetworkOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	m.online = online
	state := m.state

	var from State
	changed := false
	if !online && state == StateActive {
		from, changed = m.setLocked(StatePaused, reasonNetworkOffline)
	}
	status := m.statusLocked()
	m.mu.Unlock()

	if changed {
		m.publish(ctx, from, status)
	}

	if online && state == StatePaused {
		select {
		case m.wake <- struct{}{}:
		default:
		}
	}
}

// SyncNow runs one cycle on the caller's goroutine. It is allowed from active and paused.
func (m *Manager) SyncNow(ctx context.Context) error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if !state.in(syncingStates) {
		return fmt.Errorf("%w: sync from %s", ErrInvalidTransition, state)
	}

	err := m.runCycle(ctx)
	m.applyCycleResult(ctx, err)

	return err
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.mu.Lock()
	status := m.statusLocked()
	m.mu.Unlock()

	status.Pending = m.pendingCount(context.Background(), status.Cursor.PushedSeq)

	return status
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Manager) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	announcements := m.watch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.store.Pending():
		case <-m.wake:
		case _, ok := <-announcements:
			if !ok {
				announcements = nil
				continue
			}
		}

		if !m.shouldSync() {
			continue
		}

		m.applyCycleResult(ctx, m.runCycle(ctx))
	}
}

// watch subscribes to remote announcements if the remote supports them. A failed watch is not fatal,
// the ticker and local appends still drive the cycles.
func (m *Manager) watch(ctx context.Context) <-chan uint64 {
	m.mu.Lock()
	remote, namespace := m.remote, m.options.Namespace
	m.mu.Unlock()

	watcher, ok := remote.(Watcher)
	if !ok {
		return nil
	}

	announcements, err := watcher.Watch(ctx, namespace)
	if err != nil {
		m.observer.LogWarn(ctx, LogMsgWatchFailed, LogAttrNamespace, namespace, eventstore.LogAttrError, err.Error())
		return nil
	}

	return announcements
}

func (m *Manager) shouldSync() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online && m.state.in(syncingStates)
}

// applyCycleResult maps the outcome of a cycle to active, paused or error.
// A canceled caller changes nothing.
func (m *Manager) applyCycleResult(ctx context.Context, err error) {
	switch {
	case ctx.Err() != nil:
		return
	case err == nil:
		m.mu.Lock()
		online := m.online
		m.mu.Unlock()

		if online {
			m.transition(ctx, syncingStates, StateActive, "")
		}
	case errors.Is(err, ErrSyncConnectivity):
		m.transition(ctx, syncingStates, StatePaused, err.Error())
	default:
		m.transition(ctx, syncingStates, StateError, err.Error())
	}
}

func (m *Manager) ensureLoop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loopCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.loopCancel = cancel
	m.loopDone = make(chan struct{})

	go m.run(ctx, m.options.Interval, m.loopDone)
}

func (m *Manager) stopLoop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.loopCancel, m.loopDone
	m.loopCancel, m.loopDone = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition moves to the target state if the current state is one of allowed (nil allows all).
func (m *Manager) transition(ctx context.Context, allowed []State, to State, reason string) bool {
	m.mu.Lock()
	if allowed != nil && !m.state.in(allowed) {
		m.mu.Unlock()
		return false
	}

	from, changed := m.setLocked(to, reason)
	status := m.statusLocked()
	m.mu.Unlock()

	if changed {
		m.publish(ctx, from, status)
	}

	return true
}

func (m *Manager) setLocked(to State, reason string) (from State, changed bool) {
	from = m.state
	changed = from != to || m.reason != reason
	m.state, m.reason = to, reason

	return from, changed
}

func (m *Manager) statusLocked() Status {
	return Status{
		State:      m.state,
		Reason:     m.reason,
		Online:     m.online,
		LastSyncAt: m.lastSyncAt,
		Cursor:     m.cursor,
		Endpoint:   m.options.Endpoint,
		Namespace:  m.options.Namespace,
	}
}

func (m *Manager) publish(ctx context.Context, from State, status Status) {
	status.Pending = m.pendingCount(ctx, status.Cursor.PushedSeq)

	m.observer.LogInfo(ctx, LogMsgStateChanged,
		LogAttrFrom, string(from),
		LogAttrState, string(status.State),
		LogAttrReason, status.Reason)
	m.observer.RecordValue(ctx, SyncStateMetric, stateValues[status.State], nil)

	for _, listener := range m.listeners {
		listener(status)
	}
}

// pendingCount counts the local events above the pushed cursor.
func (m *Manager) pendingCount(ctx context.Context, pushedSeq eventstore.SequenceNumber) int {
	events, err := m.store.EventsAfterSeq(ctx, pushedSeq)
	if err != nil {
		return 0
	}

	deviceID := m.store.DeviceID()
	pending := 0
	for _, event := range events {
		if event.Origin == deviceID {
			pending++
		}
	}

	return pending
}

func closeRemote(remote Remote) {
	if closer, ok := remote.(io.Closer); ok {
		_ = closer.Close()
	}
}
