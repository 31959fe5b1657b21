// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/database"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu      sync.Mutex
	tracks  map[int64]*models.Track
	devices map[int64]*models.Device
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tracks:  make(map[int64]*models.Track),
		devices: make(map[int64]*models.Device),
	}
}

func (f *fakeStore) addTrack(t models.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[t.ID] = &t
}

func (f *fakeStore) addDevice(d models.Device) *models.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[d.ID] = &d
	return &d
}

func (f *fakeStore) GetTrack(_ context.Context, id int64) (*models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, database.ErrTrackNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetTracksByIDs(_ context.Context, viewerID int64, ids []int64) (map[int64]*models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]*models.Track)
	for _, id := range ids {
		t, ok := f.tracks[id]
		if !ok || (t.UserID != viewerID && t.Private) {
			continue
		}
		cp := *t
		out[id] = &cp
	}
	return out, nil
}

func (f *fakeStore) GetDeviceByID(_ context.Context, id int64) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok {
		return nil, database.ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func testDevice(id, userID int64, deviceType models.DeviceType) *models.Device {
	return &models.Device{
		ID:         id,
		UserID:     userID,
		DeviceID:   "device-" + string(rune('a'+id-1)),
		DeviceName: "Device",
		DeviceType: deviceType,
	}
}

// connectTest registers a connectionless session with the hub.
func connectTest(h *Hub, d *models.Device) *Session {
	s := NewSession(nil, d, 16)
	h.Connect(s)
	return s
}

// drain returns every message currently queued for s.
func drain(s *Session) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-s.Outbound():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func decodeState(t *testing.T, payload []byte) models.NowListeningState {
	t.Helper()
	var st models.NowListeningState
	if err := json.Unmarshal(payload, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func decodeError(t *testing.T, payload []byte) models.ErrorMessage {
	t.Helper()
	var msg models.ErrorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode error message: %v", err)
	}
	return msg
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}
