package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pos-eventstore-go/config"
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
	"github.com/AntonStoeckl/pos-eventstore-go/replication/httpremote"
	"github.com/AntonStoeckl/pos-eventstore-go/testutil/helper"
)

func givenHubServer(t *testing.T, metrics *helper.MetricsCollectorSpy) *httptest.Server {
	t.Helper()

	cfg := config.Default().Hub
	telemetry := &config.Telemetry{Logger: helper.NewLogHandlerSpy(false).NewLogger(), Metrics: metrics}

	h, err := newHub(context.Background(), cfg, telemetry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.close() })

	server := httptest.NewServer(h.handler)
	t.Cleanup(server.Close)

	return server
}

func Test_Hub_ServesSyncProtocol(t *testing.T) {
	// arrange
	metrics := helper.NewMetricsCollectorSpy()
	server := givenHubServer(t, metrics)
	ctx := context.Background()

	client, err := httpremote.NewClient(server.URL, httpremote.WithTimeout(2*time.Second))
	require.NoError(t, err)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	events := eventstore.Events{
		helper.GivenLoyaltyAccrued(t, "cust-1", 10, at).WithSeq(1).WithOrigin("till-1"),
		helper.GivenLoyaltyRedeemed(t, "cust-1", 4, at.Add(time.Minute)).WithSeq(2).WithOrigin("till-1"),
	}

	// act
	pushed, err := client.Push(ctx, "store-1", events)
	require.NoError(t, err)

	pulled, err := client.Pull(ctx, "store-1", 0, 10)
	require.NoError(t, err)

	other, err := client.Pull(ctx, "store-2", 0, 10)
	require.NoError(t, err)

	// assert
	assert.Equal(t, 2, pushed.Accepted)
	require.Len(t, pulled.Events, 2)
	assert.Equal(t, events[0].ID, pulled.Events[0].ID)
	assert.Equal(t, "till-1", pulled.Events[1].Origin)
	assert.Empty(t, other.Events)
}

func Test_Hub_Health(t *testing.T) {
	server := givenHubServer(t, helper.NewMetricsCollectorSpy())

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func Test_NewHub_UnknownBackend_Fails(t *testing.T) {
	cfg := config.Default().Hub
	cfg.Backend = "etcd"

	_, err := newHub(context.Background(), cfg, &config.Telemetry{})

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
