package eventstore

// Cursor is the replication progress of one device against one remote.
type Cursor struct {
	// PushedSeq is the highest local sequence number acknowledged by the remote.
	PushedSeq SequenceNumber
	// PulledRevision is the highest remote revision durably appended to the local log.
	PulledRevision uint64
}
