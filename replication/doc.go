// Package replication synchronizes the local event log of a device with a central store.
//
// A Manager is a state machine:
//
//	idle -> configuring -> active <-> paused -> stopped
//
// plus error (invalid configuration or failed first connection) and unavailable (no remote adapter
// can be created in this runtime). Stop is allowed from every state; Configure restarts the machine.
//
// Each sync cycle pushes the locally created events with a seq above the pushed cursor, then pulls
// remote events above the pulled revision and appends the unseen ones through the event log, so
// indexes and cache see them like local writes. Cursors are persisted only after the batch they
// describe is durable. Concurrent writes to the same aggregate on different devices are resolved
// by last-write-wins on the event timestamp; there is no merge.
//
// Sync failures never reach local writers. They show up as state transitions with a reason.
package replication
