package replication

const (
	SyncCycleDurationMetric = "sync_cycle_duration_seconds"
	SyncCyclesMetric        = "sync_cycles_total"
	SyncPushedEventsMetric  = "sync_events_pushed_total"
	SyncPulledEventsMetric  = "sync_events_pulled_total"
	SyncRetriesMetric       = "sync_retries_total"
	SyncRetryDelayMetric    = "sync_retry_delay_seconds"
	SyncStateMetric         = "sync_state"
	SyncPendingMetric       = "sync_pending_events"

	SpanNameCycle = "sync.cycle"

	LogAttrOperation = "operation"
	LogAttrErrorType = "error_type"
	LogAttrState     = "state"
	LogAttrFrom      = "from"
	LogAttrReason    = "reason"
	LogAttrNamespace = "namespace"
	LogAttrPushed    = "pushed"
	LogAttrPulled    = "pulled"

	LogMsgStateChanged   = "sync state changed"
	LogMsgCycleCompleted = "sync cycle completed"
	LogMsgCycleFailed    = "sync cycle failed"
	LogMsgEventSkipped   = "pulled event skipped"
	LogMsgWatchFailed    = "remote watch failed"

	operationPush = "push"
	operationPull = "pull"

	reasonNetworkOffline = "network offline"
)

// stateValues maps states to the numeric value of the sync_state gauge.
var stateValues = map[State]float64{
	StateIdle:        0,
	StateConfiguring: 1,
	StateActive:      2,
	StatePaused:      3,
	StateStopped:     4,
	StateError:       5,
	StateUnavailable: 6,
}
