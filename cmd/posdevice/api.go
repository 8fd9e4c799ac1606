package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/shell"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

var json = jsoniter.ConfigFastest

const (
	maxEventBodyBytes = 1 << 20
	defaultTopItems   = 10

	logMsgRequestFailed = "api request failed"
	logAttrRoute        = "route"
	logAttrStatus       = "status"
)

var (
	errMissingParameter  = errors.New("missing query parameter")
	errInvalidParameter  = errors.New("invalid query parameter")
	errReservedEventType = errors.New("report.generated events are appended by POST /v1/reports/{date}")
)

// eventRequest is the body of POST /v1/events. At is epoch milliseconds and defaults to now.
type eventRequest struct {
	Type      string               `json:"type"`
	Aggregate eventstore.Aggregate `json:"aggregate"`
	At        int64                `json:"at"`
	Payload   jsoniter.RawMessage  `json:"payload"`
}

type errorBody struct {
	Error string `json:"error"`
}

type api struct {
	device   *device
	observer eventstore.Observer
	now      func() time.Time
}

func newAPI(d *device, observer eventstore.Observer) http.Handler {
	a := &api{device: d, observer: observer, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", a.appendEvent)
	mux.HandleFunc("GET /v1/events", a.eventsAfter)
	mux.HandleFunc("GET /v1/loyalty/{customerID}", a.loyaltyAccount)
	mux.HandleFunc("GET /v1/payments/{ticketID}", a.ticketPayments)
	mux.HandleFunc("GET /v1/payments", a.paymentSummary)
	mux.HandleFunc("GET /v1/sales", a.salesSummary)
	mux.HandleFunc("GET /v1/sales/top", a.topItems)
	mux.HandleFunc("GET /v1/sales/hourly/{date}", a.hourlySales)
	mux.HandleFunc("GET /v1/reports/{date}", a.reportPreview)
	mux.HandleFunc("POST /v1/reports/{date}", a.generateReport)
	mux.HandleFunc("GET /v1/sync", a.syncStatus)
	mux.HandleFunc("POST /v1/sync", a.syncNow)
	mux.HandleFunc("PUT /v1/sync/network", a.setNetwork)
	mux.HandleFunc("GET /healthz", a.health)

	return mux
}

func (a *api) appendEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	var req eventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, errors.Join(eventstore.ErrValidation, err))
		return
	}

	if req.Type == core.ReportGeneratedEventType {
		a.fail(r.Context(), w, r, http.StatusBadRequest, errReservedEventType)
		return
	}

	at := a.now()
	if req.At != 0 {
		at = eventstore.TimeFromMillis(req.At)
	}

	event, err := eventstore.BuildEvent(req.Type, req.Aggregate, at, req.Payload)
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	if _, err := shell.DomainEventFrom(event); err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, errors.Join(eventstore.ErrValidation, err))
		return
	}

	stored, err := a.device.store.Append(r.Context(), event)
	if err != nil {
		a.fail(r.Context(), w, r, statusOf(err), err)
		return
	}

	a.respond(w, http.StatusCreated, stored)
}

func (a *api) eventsAfter(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			a.fail(r.Context(), w, r, http.StatusBadRequest, fmt.Errorf("%w: after", errInvalidParameter))
			return
		}

		after = parsed
	}

	events, err := a.device.store.EventsAfterSeq(r.Context(), eventstore.SequenceNumber(after))
	a.reply(w, r, events, err)
}

func (a *api) loyaltyAccount(w http.ResponseWriter, r *http.Request) {
	account, err := a.device.loyalty.Account(r.Context(), r.PathValue("customerID"))
	a.reply(w, r, account, err)
}

func (a *api) ticketPayments(w http.ResponseWriter, r *http.Request) {
	ticket, err := a.device.payments.TicketPayments(r.Context(), r.PathValue("ticketID"))
	a.reply(w, r, ticket, err)
}

func (a *api) paymentSummary(w http.ResponseWriter, r *http.Request) {
	from, until, err := timeRange(r)
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	summary, err := a.device.payments.Summary(r.Context(), from, until)
	a.reply(w, r, summary, err)
}

func (a *api) salesSummary(w http.ResponseWriter, r *http.Request) {
	from, until, err := timeRange(r)
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	summary, err := a.device.sales.Summary(r.Context(), from, until)
	a.reply(w, r, summary, err)
}

func (a *api) topItems(w http.ResponseWriter, r *http.Request) {
	from, until, err := timeRange(r)
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	limit := defaultTopItems
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			a.fail(r.Context(), w, r, http.StatusBadRequest, fmt.Errorf("%w: limit", errInvalidParameter))
			return
		}
	}

	items, err := a.device.sales.TopItems(r.Context(), from, until, limit)
	a.reply(w, r, items, err)
}

func (a *api) hourlySales(w http.ResponseWriter, r *http.Request) {
	date, err := eventstore.ParseBusinessDate(r.PathValue("date"))
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	hourly, err := a.device.sales.HourlySales(r.Context(), date)
	a.reply(w, r, hourly, err)
}

func (a *api) reportPreview(w http.ResponseWriter, r *http.Request) {
	date, err := eventstore.ParseBusinessDate(r.PathValue("date"))
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	report, err := a.device.reporting.BusinessDateReport(r.Context(), date)
	a.reply(w, r, report, err)
}

func (a *api) generateReport(w http.ResponseWriter, r *http.Request) {
	date, err := eventstore.ParseBusinessDate(r.PathValue("date"))
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, err)
		return
	}

	report, err := a.device.reporting.GenerateReport(r.Context(), date)
	if err != nil {
		a.fail(r.Context(), w, r, statusOf(err), err)
		return
	}

	a.respond(w, http.StatusCreated, report)
}

func (a *api) syncStatus(w http.ResponseWriter, _ *http.Request) {
	a.respond(w, http.StatusOK, a.device.sync.Status())
}

func (a *api) syncNow(w http.ResponseWriter, r *http.Request) {
	err := a.device.sync.SyncNow(r.Context())
	a.reply(w, r, a.device.sync.Status(), err)
}

func (a *api) setNetwork(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("online")
	if raw == "" {
		a.fail(r.Context(), w, r, http.StatusBadRequest, fmt.Errorf("%w: online", errMissingParameter))
		return
	}

	online, err := strconv.ParseBool(raw)
	if err != nil {
		a.fail(r.Context(), w, r, http.StatusBadRequest, fmt.Errorf("%w: online", errInvalidParameter))
		return
	}

	a.device.sync.SetNetworkOnline(r.Context(), online)
	a.respond(w, http.StatusOK, a.device.sync.Status())
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	if !a.device.store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *api) reply(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		a.fail(r.Context(), w, r, statusOf(err), err)
		return
	}

	a.respond(w, http.StatusOK, body)
}

func (a *api) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *api) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.observer.LogError(ctx, logMsgRequestFailed, err, logAttrRoute, r.Pattern, logAttrStatus, status)
	} else {
		a.observer.LogDebug(ctx, logMsgRequestFailed, eventstore.LogAttrError, err.Error(), logAttrRoute, r.Pattern)
	}

	a.respond(w, status, errorBody{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, eventstore.ErrValidation),
		errors.Is(err, eventstore.ErrInvalidBusinessDate):
		return http.StatusBadRequest
	case errors.Is(err, replication.ErrInvalidTransition),
		errors.Is(err, replication.ErrNotConfigured):
		return http.StatusConflict
	case errors.Is(err, replication.ErrRemoteRejected):
		return http.StatusBadGateway
	case errors.Is(err, replication.ErrSyncConnectivity),
		errors.Is(err, eventstore.ErrAggregateNotIndexed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// timeRange reads the inclusive from/until parameters as RFC 3339 timestamps.
func timeRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := timeParam(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	until, err := timeParam(r, "until")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return from, until, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s", errMissingParameter, name)
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", errInvalidParameter, name)
	}

	return t, nil
}
