package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/srvstats/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_BroadcastsPublishedSnapshots(t *testing.T) {
	hub, srv := startHub(t)
	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Publish(Result{Host: "web", Snapshot: &stats.Snapshot{CPUPercent: 42.5}})

	msg := readMessage(t, conn)
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "web", msg.Host)
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, 42.5, msg.Snapshot.CPUPercent)
}

func TestHub_NewSubscriberGetsLatest(t *testing.T) {
	hub, srv := startHub(t)

	hub.Publish(Result{Host: "web", Snapshot: &stats.Snapshot{CPUPercent: 1}})
	hub.Publish(Result{Host: "db", Snapshot: &stats.Snapshot{CPUPercent: 2}})
	hub.Publish(Result{Host: "web", Snapshot: &stats.Snapshot{CPUPercent: 3}})

	conn := dialHub(t, srv)
	first := readMessage(t, conn)
	second := readMessage(t, conn)

	assert.Equal(t, "db", first.Host)
	assert.Equal(t, 2.0, first.Snapshot.CPUPercent)
	assert.Equal(t, "web", second.Host)
	assert.Equal(t, 3.0, second.Snapshot.CPUPercent)
}

func TestHub_DropsEmptyResults(t *testing.T) {
	hub, srv := startHub(t)
	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Publish(Result{Host: "web"})
	hub.Publish(Result{Host: "db", Snapshot: &stats.Snapshot{MemPercent: 10}})

	msg := readMessage(t, conn)
	assert.Equal(t, "db", msg.Host, "nil snapshot must not be sent")
}

func TestHub_Health(t *testing.T) {
	hub, srv := startHub(t)
	hub.Publish(Result{Host: "web", Snapshot: &stats.Snapshot{}})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string `json:"status"`
		Hosts  int    `json:"hosts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Hosts)
}

func TestHub_SubscriberLeaves(t *testing.T) {
	hub, srv := startHub(t)
	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() {
		hub.Publish(Result{Host: "web", Snapshot: &stats.Snapshot{}})
	})
	assert.Equal(t, 0, hub.Subscribers())
}
