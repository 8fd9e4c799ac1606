package replication

import "errors"

var (
	// ErrSyncConnectivity wraps every failure to talk to the remote.
	ErrSyncConnectivity = errors.New("sync connectivity error")

	// ErrRemoteRejected marks remote failures which will not go away by retrying, e.g. a malformed request.
	// It is not a connectivity failure: the manager moves to error instead of paused.
	ErrRemoteRejected = errors.New("remote rejected the request")

	// ErrRemoteUnavailable is returned by a RemoteFactory which cannot provide a remote in this runtime.
	ErrRemoteUnavailable = errors.New("remote adapter unavailable")

	ErrInvalidEndpoint   = errors.New("sync endpoint must be an absolute http or https URL")
	ErrInvalidNamespace  = errors.New("sync namespace must match ^[a-z0-9][a-z0-9_-]{0,62}$")
	ErrInvalidOptions    = errors.New("invalid sync options")
	ErrInvalidTransition = errors.New("invalid sync state transition")
	ErrNotConfigured     = errors.New("sync manager is not configured")
)
