// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/groovesync/internal/models"
)

// startHubServer serves the hub; the device is chosen by the ?device= id.
func startHubServer(t *testing.T, h *Hub, devices map[int64]*models.Device) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("device"), 10, 64)
		d, ok := devices[id]
		if !ok {
			http.Error(w, "unknown device", http.StatusNotFound)
			return
		}
		h.ServeWS(w, r, d)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, deviceID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?device=" + strconv.FormatInt(deviceID, 10)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func waitForSessions(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.SessionCount() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session count = %d, want %d", h.SessionCount(), n)
}

func TestHubNowPlayingOverSocket(t *testing.T) {
	store := newFakeStore()
	store.addTrack(models.Track{ID: 7, UserID: 10, Name: "Live"})
	h := NewHub(store, DefaultLimits())
	devices := map[int64]*models.Device{
		1: testDevice(1, 10, models.DeviceWeb),
		2: testDevice(2, 10, models.DeviceWeb),
	}
	srv := startHubServer(t, h, devices)

	a := dial(t, srv, 1)
	b := dial(t, srv, 2)
	waitForSessions(t, h, 2)

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"messageType":"NOW_PLAYING","trackId":7,"isPlaying":true}`)); err != nil {
		t.Fatal(err)
	}
	var st models.NowListeningState
	readJSON(t, b, &st)
	if st.DeviceID != 1 || st.TrackData == nil || st.TrackData.Name != "Live" {
		t.Errorf("unexpected state: %+v", st)
	}

	// Closing a drops its session and b sees the track cleared.
	_ = a.Close()
	var cleared models.NowListeningState
	readJSON(t, b, &cleared)
	if cleared.DeviceID != 1 || cleared.TrackData != nil {
		t.Errorf("unexpected final state: %+v", cleared)
	}
	waitForSessions(t, h, 1)
}

func TestHubRejectsUnknownMessage(t *testing.T) {
	h := NewHub(newFakeStore(), DefaultLimits())
	srv := startHubServer(t, h, map[int64]*models.Device{1: testDevice(1, 10, models.DeviceWeb)})
	conn := dial(t, srv, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"messageType":"JUKEBOX"}`)); err != nil {
		t.Fatal(err)
	}
	var msg models.ErrorMessage
	readJSON(t, conn, &msg)
	if msg.MessageType != models.MessageError || msg.RequestType != "JUKEBOX" || msg.Error.Code != "UNKNOWN_MESSAGE_TYPE" {
		t.Errorf("unexpected error message: %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatal(err)
	}
	readJSON(t, conn, &msg)
	if msg.Error.Code != CodeInvalidRequest {
		t.Errorf("code = %s, want %s", msg.Error.Code, CodeInvalidRequest)
	}
}

func TestDispatchRemotePlayErrorReachesSender(t *testing.T) {
	h := NewHub(newFakeStore(), DefaultLimits())
	s := connectTest(h, testDevice(1, 10, models.DeviceAndroid))

	h.Dispatch(context.Background(), s, remoteRequest(42, models.RemotePlayPlay))
	msgs := drain(s)
	if len(msgs) != 1 {
		t.Fatalf("sender received %d messages, want 1", len(msgs))
	}
	msg := decodeError(t, msgs[0])
	if msg.RequestType != models.MessageRemotePlay || msg.Error.Code != CodeDeviceNotFound {
		t.Errorf("unexpected error: %+v", msg)
	}
}

func TestRunWithContextClosesSessions(t *testing.T) {
	h := NewHub(newFakeStore(), DefaultLimits())
	s := connectTest(h, testDevice(1, 10, models.DeviceWeb))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunWithContext did not return")
	}
	if h.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", h.SessionCount())
	}
	if s.Send([]byte("x")) {
		t.Error("sessions should be closed after shutdown")
	}
}

func TestShutdownReason(t *testing.T) {
	if got := shutdownReason(context.Canceled); got != "context canceled" {
		t.Errorf("shutdownReason(Canceled) = %q", got)
	}
	if got := shutdownReason(context.DeadlineExceeded); got != "deadline exceeded" {
		t.Errorf("shutdownReason(DeadlineExceeded) = %q", got)
	}
}
