package httpremote

import (
	"errors"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

const (
	routePrefix   = "/v1/"
	eventsSuffix  = "/events"
	watchSuffix   = "/watch"
	paramAfter    = "after"
	paramLimit    = "limit"
	contentType   = "application/json"
	maxPageLimit  = 1000
	maxPushEvents = 1000
	maxBodyBytes  = 16 << 20
)

var json = jsoniter.ConfigFastest

var (
	ErrInvalidRequest = errors.New("invalid sync request")
	ErrUnexpectedBody = errors.New("unexpected response body")
)

type errorResponse struct {
	Error string `json:"error"`
}

// announcement is the websocket message sent after a push changed a namespace.
type announcement struct {
	Revision uint64 `json:"revision"`
}

func eventsPath(namespace string) string {
	return routePrefix + namespace + eventsSuffix
}

func watchPath(namespace string) string {
	return routePrefix + namespace + watchSuffix
}

func formatRevision(revision uint64) string {
	return strconv.FormatUint(revision, 10)
}
