package httpremote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	metricRequests        = "synchub_requests_total"
	metricRequestDuration = "synchub_request_duration_seconds"
	metricWatchers        = "synchub_watchers"

	routePush  = "push"
	routePull  = "pull"
	routeWatch = "watch"

	logMsgRequestFailed = "sync request failed"
	logMsgWatchOpened   = "watch opened"
	logMsgWatchClosed   = "watch closed"
	logAttrRoute        = "route"
	logAttrNamespace    = "namespace"
)

var ErrNilBackend = errors.New("backend must not be nil")

// HandlerOption defines a functional option for configuring a Handler.
type HandlerOption func(*Handler) error

func WithHandlerLogger(logger eventstore.Logger) HandlerOption {
	return func(h *Handler) error {
		h.observer.Logger = logger
		return nil
	}
}

func WithHandlerMetrics(collector eventstore.MetricsCollector) HandlerOption {
	return func(h *Handler) error {
		h.observer.Metrics = collector
		return nil
	}
}

func WithHandlerTracing(collector eventstore.TracingCollector) HandlerOption {
	return func(h *Handler) error {
		h.observer.Tracing = collector
		return nil
	}
}

// watcher is one websocket subscribed to a namespace.
type watcher struct {
	send chan uint64
}

// Handler serves the sync protocol for a backend, e.g. a memremote.Hub or a postgresengine.RemoteStore.
type Handler struct {
	backend  replication.Remote
	observer eventstore.Observer
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	watchersMu sync.Mutex
	watchers   map[string]map[*watcher]struct{}
}

func NewHandler(backend replication.Remote, options ...HandlerOption) (*Handler, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	h := &Handler{
		backend:  backend,
		mux:      http.NewServeMux(),
		watchers: make(map[string]map[*watcher]struct{}),
	}

	for _, option := range options {
		if err := option(h); err != nil {
			return nil, err
		}
	}

	h.mux.HandleFunc("POST "+routePrefix+"{namespace}"+eventsSuffix, h.handlePush)
	h.mux.HandleFunc("GET "+routePrefix+"{namespace}"+eventsSuffix, h.handlePull)
	h.mux.HandleFunc("GET "+routePrefix+"{namespace}"+watchSuffix, h.handleWatch)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.observer.StartSpan(r.Context(), "synchub.push", nil)
	start := time.Now()

	namespace, ok := h.namespace(w, r, routePush)
	if !ok {
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.fail(ctx, w, routePush, http.StatusBadRequest, err)
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	var events eventstore.Events
	if err := json.Unmarshal(body, &events); err != nil {
		h.fail(ctx, w, routePush, http.StatusBadRequest, errors.Join(ErrInvalidRequest, err))
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	if len(events) > maxPushEvents {
		h.fail(ctx, w, routePush, http.StatusRequestEntityTooLarge, ErrInvalidRequest)
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	result, err := h.backend.Push(ctx, namespace, events)
	if err != nil {
		h.fail(ctx, w, routePush, backendStatus(err), err)
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	if result.Accepted > 0 {
		h.announce(namespace, result.Revision)
	}

	h.respond(ctx, w, routePush, start, result)
	h.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{"accepted": strconv.Itoa(result.Accepted)})
}

func (h *Handler) handlePull(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.observer.StartSpan(r.Context(), "synchub.pull", nil)
	start := time.Now()

	namespace, ok := h.namespace(w, r, routePull)
	if !ok {
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	after, limit, err := pageParams(r)
	if err != nil {
		h.fail(ctx, w, routePull, http.StatusBadRequest, err)
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	result, err := h.backend.Pull(ctx, namespace, after, limit)
	if err != nil {
		h.fail(ctx, w, routePull, backendStatus(err), err)
		h.observer.FinishSpan(span, eventstore.StatusError, nil)
		return
	}

	if result.Events == nil {
		result.Events = eventstore.Events{}
	}

	h.respond(ctx, w, routePull, start, result)
	h.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{"revision": formatRevision(result.Revision)})
}

func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	namespace, ok := h.namespace(w, r, routeWatch)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.observer.LogWarn(r.Context(), logMsgRequestFailed, logAttrRoute, routeWatch, eventstore.LogAttrError, err.Error())
		return
	}

	subscriber := &watcher{send: make(chan uint64, 1)}
	h.subscribe(namespace, subscriber)
	defer h.unsubscribe(namespace, subscriber)

	h.observer.LogInfo(r.Context(), logMsgWatchOpened, logAttrNamespace, namespace)

	done := make(chan struct{})
	go h.writeAnnouncements(conn, subscriber, done)

	// The client sends nothing; reading detects the close.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	close(done)

	h.observer.LogInfo(r.Context(), logMsgWatchClosed, logAttrNamespace, namespace)
}

func (h *Handler) writeAnnouncements(conn *websocket.Conn, subscriber *watcher, done <-chan struct{}) {
	defer func() { _ = conn.Close() }()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case revision := <-subscriber.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(announcement{Revision: revision}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) subscribe(namespace string, subscriber *watcher) {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()

	if h.watchers[namespace] == nil {
		h.watchers[namespace] = make(map[*watcher]struct{})
	}
	h.watchers[namespace][subscriber] = struct{}{}
	h.observer.RecordValue(context.Background(), metricWatchers, float64(h.countLocked()), nil)
}

func (h *Handler) unsubscribe(namespace string, subscriber *watcher) {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()

	delete(h.watchers[namespace], subscriber)
	if len(h.watchers[namespace]) == 0 {
		delete(h.watchers, namespace)
	}
	h.observer.RecordValue(context.Background(), metricWatchers, float64(h.countLocked()), nil)
}

func (h *Handler) countLocked() int {
	count := 0
	for _, subscribers := range h.watchers {
		count += len(subscribers)
	}

	return count
}

// announce replaces a pending announcement instead of blocking on slow watchers.
func (h *Handler) announce(namespace string, revision uint64) {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()

	for subscriber := range h.watchers[namespace] {
		select {
		case <-subscriber.send:
		default:
		}
		subscriber.send <- revision
	}
}

func (h *Handler) namespace(w http.ResponseWriter, r *http.Request, route string) (string, bool) {
	namespace := r.PathValue("namespace")
	if !replication.ValidNamespace(namespace) {
		h.fail(r.Context(), w, route, http.StatusBadRequest, errors.Join(ErrInvalidRequest, replication.ErrInvalidNamespace))
		return "", false
	}

	return namespace, true
}

func pageParams(r *http.Request) (uint64, int, error) {
	query := r.URL.Query()

	var after uint64
	if raw := query.Get(paramAfter); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, errors.Join(ErrInvalidRequest, err)
		}
		after = parsed
	}

	limit := replication.DefaultBatchSize
	if raw := query.Get(paramLimit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.Join(ErrInvalidRequest, errors.New("limit must be a positive integer"))
		}
		limit = min(parsed, maxPageLimit)
	}

	return after, limit, nil
}

func backendStatus(err error) int {
	switch {
	case errors.Is(err, eventstore.ErrValidation), errors.Is(err, replication.ErrRemoteRejected):
		return http.StatusBadRequest
	case errors.Is(err, replication.ErrSyncConnectivity), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, route string, start time.Time, body any) {
	encoded, err := json.Marshal(body)
	if err != nil {
		h.fail(ctx, w, route, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded)

	labels := map[string]string{logAttrRoute: route, eventstore.LabelStatus: strconv.Itoa(http.StatusOK)}
	h.observer.IncrementCounter(ctx, metricRequests, labels)
	h.observer.RecordDuration(ctx, metricRequestDuration, time.Since(start), labels)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, route string, status int, err error) {
	h.observer.LogWarn(ctx, logMsgRequestFailed,
		logAttrRoute, route,
		eventstore.LabelStatus, status,
		eventstore.LogAttrError, err.Error())
	h.observer.IncrementCounter(ctx, metricRequests, map[string]string{
		logAttrRoute:           route,
		eventstore.LabelStatus: strconv.Itoa(status),
	})

	encoded, _ := json.Marshal(errorResponse{Error: err.Error()})

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}
