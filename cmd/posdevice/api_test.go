package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/config"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/pos-eventstore-go/replication"
	"github.com/AntonStoeckl/pos-eventstore-go/replication/memremote"
	"github.com/AntonStoeckl/pos-eventstore-go/testutil/helper"
)

const testNamespace = "store-1"

type testDevice struct {
	device  *device
	handler http.Handler
	hub     *memremote.Hub
	metrics *helper.MetricsCollectorSpy
}

func givenTestDevice(t *testing.T, syncEnabled bool) testDevice {
	t.Helper()

	cfg := config.Default()
	cfg.Device.ID = "till-1"
	cfg.Sync.Enabled = syncEnabled
	cfg.Sync.Endpoint = "http://hub.local:9090"
	cfg.Sync.Namespace = testNamespace
	cfg.Sync.Interval = time.Hour
	cfg.Sync.RetryAttempts = 1

	metrics := helper.NewMetricsCollectorSpy()
	telemetry := &config.Telemetry{
		Logger:  helper.NewLogHandlerSpy(false).NewLogger(),
		Metrics: metrics,
	}

	hub := memremote.New()

	d, err := newDevice(context.Background(), cfg, telemetry, memoryengine.New(), hub.Factory())
	require.NoError(t, err)
	require.NoError(t, d.startSync(context.Background()))
	t.Cleanup(func() { _ = d.stop(context.Background()) })

	return testDevice{device: d, handler: newAPI(d, telemetry.Observer()), hub: hub, metrics: metrics}
}

func (td testDevice) call(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	rec := httptest.NewRecorder()
	td.handler.ServeHTTP(rec, httptest.NewRequest(method, target, reader))

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}

	return rec.Code, decoded
}

func atMillis(t *testing.T, value string) string {
	t.Helper()

	at, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)

	return strconv.FormatInt(at.UnixMilli(), 10)
}

func Test_API_AppendThenQueryLoyalty(t *testing.T) {
	// arrange
	td := givenTestDevice(t, false)

	// act
	status, stored := td.call(t, http.MethodPost, "/v1/events",
		`{"type":"loyalty.accrued","aggregate":{"id":"cust-1","type":"customer"},"payload":{"customerId":"cust-1","points":120}}`)
	require.Equal(t, http.StatusCreated, status)

	td.call(t, http.MethodPost, "/v1/events",
		`{"type":"loyalty.redeemed","aggregate":{"id":"cust-1","type":"customer"},"payload":{"customerId":"cust-1","points":20}}`)

	status, account := td.call(t, http.MethodGet, "/v1/loyalty/cust-1", "")

	// assert
	assert.Equal(t, "till-1", stored["Origin"])
	assert.EqualValues(t, 1, stored["Seq"])
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, account["Balance"])
}

func Test_API_AppendEvent_Rejections(t *testing.T) {
	td := givenTestDevice(t, false)

	testCases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"unknown event type", `{"type":"table.opened","aggregate":{"id":"t-1","type":"table"},"payload":{}}`},
		{"missing aggregate", `{"type":"loyalty.accrued","aggregate":{"id":"","type":"customer"},"payload":{"points":1}}`},
		{"payload not an object", `{"type":"loyalty.accrued","aggregate":{"id":"c","type":"customer"},"payload":"x"}`},
		{"reserved report event", `{"type":"report.generated","aggregate":{"id":"r","type":"report"},"payload":{}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := td.call(t, http.MethodPost, "/v1/events", tc.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}

	assert.Equal(t, eventstore.SequenceNumber(0), td.device.store.LastSeq())
}

func Test_API_SalesAndReports(t *testing.T) {
	// arrange
	td := givenTestDevice(t, false)
	for _, body := range []string{
		`{"type":"sale.recorded","aggregate":{"id":"T-1","type":"ticket"},"at":` + atMillis(t, "2026-03-10T12:15:00Z") +
			`,"payload":{"ticketId":"T-1","lines":[{"itemId":"burger","name":"Burger","qty":2,"unitPrice":"9.50"}],"total":"19.00"}}`,
		`{"type":"sale.recorded","aggregate":{"id":"T-2","type":"ticket"},"at":` + atMillis(t, "2026-03-10T13:05:00Z") +
			`,"payload":{"ticketId":"T-2","lines":[{"itemId":"fries","name":"Fries","qty":1,"unitPrice":"3.00"}],"total":"3.00"}}`,
	} {
		status, _ := td.call(t, http.MethodPost, "/v1/events", body)
		require.Equal(t, http.StatusCreated, status)
	}

	// act
	status, summary := td.call(t, http.MethodGet, "/v1/sales?from=2026-03-10T00:00:00Z&until=2026-03-10T23:59:59Z", "")
	missingStatus, _ := td.call(t, http.MethodGet, "/v1/sales?from=2026-03-10T00:00:00Z", "")
	badDateStatus, _ := td.call(t, http.MethodGet, "/v1/reports/10-03-2026", "")
	firstStatus, first := td.call(t, http.MethodPost, "/v1/reports/2026-03-10", "")
	_, second := td.call(t, http.MethodPost, "/v1/reports/2026-03-10", "")

	// assert
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, summary["Orders"])
	assert.Equal(t, "22", summary["Revenue"])
	assert.Equal(t, http.StatusBadRequest, missingStatus)
	assert.Equal(t, http.StatusBadRequest, badDateStatus)
	assert.Equal(t, http.StatusCreated, firstStatus)
	assert.EqualValues(t, 1, first["ReportNumber"])
	assert.EqualValues(t, 2, second["ReportNumber"])
}

func Test_API_TopItemsLimitValidation(t *testing.T) {
	td := givenTestDevice(t, false)

	rec := httptest.NewRecorder()
	td.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/sales/top?from=2026-03-10T00:00:00Z&until=2026-03-10T23:59:59Z&limit=0", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_API_Sync(t *testing.T) {
	// arrange
	td := givenTestDevice(t, true)
	require.Equal(t, replication.StateActive, td.device.sync.State())

	status, _ := td.call(t, http.MethodPost, "/v1/events",
		`{"type":"payment.initiated","aggregate":{"id":"T-9","type":"ticket"},"payload":{"ticketId":"T-9","paymentId":"P-1","method":"card","amount":"12.00"}}`)
	require.Equal(t, http.StatusCreated, status)

	// act
	syncStatus, synced := td.call(t, http.MethodPost, "/v1/sync", "")
	offlineStatus, offline := td.call(t, http.MethodPut, "/v1/sync/network?online=false", "")
	badStatus, _ := td.call(t, http.MethodPut, "/v1/sync/network", "")

	// assert
	assert.Equal(t, http.StatusOK, syncStatus)
	assert.Equal(t, string(replication.StateActive), synced["State"])
	assert.Len(t, td.hub.Events(testNamespace), 1)
	assert.Equal(t, http.StatusOK, offlineStatus)
	assert.Equal(t, string(replication.StatePaused), offline["State"])
	assert.Equal(t, http.StatusBadRequest, badStatus)
}

func Test_API_SyncNow_WithoutSyncConfigured_Conflicts(t *testing.T) {
	td := givenTestDevice(t, false)

	status, body := td.call(t, http.MethodPost, "/v1/sync", "")

	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "invalid sync state transition")
}

func Test_API_Health(t *testing.T) {
	td := givenTestDevice(t, false)

	rec := httptest.NewRecorder()
	td.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_StartSync_UnreachableHub_IsNotFatal(t *testing.T) {
	// arrange
	cfg := config.Default()
	cfg.Device.ID = "till-2"
	cfg.Sync.Enabled = true
	cfg.Sync.Endpoint = "http://hub.local:9090"
	cfg.Sync.Namespace = testNamespace
	cfg.Sync.RetryAttempts = 1

	hub := memremote.New()
	hub.SetReachable(false)

	d, err := newDevice(context.Background(), cfg, &config.Telemetry{}, memoryengine.New(), hub.Factory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.stop(context.Background()) })

	// act
	err = d.startSync(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, replication.StateError, d.sync.State())
}
