// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/auth"
	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/database"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

const testSecret = "test-secret-that-is-long-enough-for-hs256-signing"

type fakeStore struct {
	mu          sync.Mutex
	pingErr     error
	lastMod     map[models.EntityType]models.Timestamp
	lastModErr  error
	changes     *models.EntityChangeResponse[models.Entity]
	windows     []models.ChangeWindow
	changeUsers []int64
	listens     []models.MarkListenedRequest
	knownTracks map[int64]bool
	devices     map[string]*models.Device
	partyErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lastMod:     map[models.EntityType]models.Timestamp{},
		knownTracks: map[int64]bool{},
		devices:     map[string]*models.Device{},
	}
}

func deviceKey(userID int64, id string) string {
	return fmt.Sprintf("%d/%s", userID, id)
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetLastModified(context.Context, int64) (map[models.EntityType]models.Timestamp, error) {
	return f.lastMod, f.lastModErr
}

func (f *fakeStore) GetChanges(_ context.Context, userID int64, w models.ChangeWindow) (*models.EntityChangeResponse[models.Entity], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, w)
	f.changeUsers = append(f.changeUsers, userID)
	if f.changes != nil {
		return f.changes, nil
	}
	return &models.EntityChangeResponse[models.Entity]{
		Content: models.ChangeContent[models.Entity]{
			New: []models.Entity{}, Modified: []models.Entity{}, Removed: []int64{},
		},
		Pageable: models.NewPageable(w.Page, w.PageSize, 0),
	}, nil
}

func (f *fakeStore) MarkListened(_ context.Context, _ int64, req models.MarkListenedRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.knownTracks[req.TrackID] {
		return database.ErrTrackNotFound
	}
	f.listens = append(f.listens, req)
	return nil
}

func (f *fakeStore) ListDevices(_ context.Context, userID int64) ([]*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertDevice(_ context.Context, userID int64, req models.DeviceUpsertRequest) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &models.Device{
		ID:         int64(len(f.devices) + 1),
		UserID:     userID,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		DeviceType: models.DeviceType(req.DeviceType),
	}
	if existing, ok := f.devices[deviceKey(userID, req.DeviceID)]; ok {
		d.ID = existing.ID
	}
	f.devices[deviceKey(userID, req.DeviceID)] = d
	return d, nil
}

func (f *fakeStore) SetPartyMode(_ context.Context, ownerID int64, req models.PartyModeRequest) (*models.Device, error) {
	if f.partyErr != nil {
		return nil, f.partyErr
	}
	return &models.Device{ID: req.DeviceID, UserID: ownerID, PartyUserIDs: req.PartyUserIDs}, nil
}

func (f *fakeStore) GetDeviceByIdentifier(_ context.Context, userID int64, deviceID string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[deviceKey(userID, deviceID)]
	if !ok {
		return nil, database.ErrDeviceNotFound
	}
	return d, nil
}

type fakeHub struct {
	mu       sync.Mutex
	served   []*models.Device
	sessions int
}

func (f *fakeHub) ServeWS(w http.ResponseWriter, _ *http.Request, device *models.Device) {
	f.mu.Lock()
	f.served = append(f.served, device)
	f.mu.Unlock()
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (f *fakeHub) SessionCount() int { return f.sessions }

type testServer struct {
	store  *fakeStore
	hub    *fakeHub
	jwt    *auth.JWTManager
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	jwt, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, SessionTimeout: time.Hour})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	store := newFakeStore()
	hub := &fakeHub{}
	handler := NewHandler(store, hub, config.FeedConfig{DefaultPageSize: 400, MaxPageSize: 1000}, "test")
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	return &testServer{
		store:  store,
		hub:    hub,
		jwt:    jwt,
		router: NewRouter(handler, auth.NewMiddleware(jwt), mw).Setup(),
	}
}

func (ts *testServer) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := ts.jwt.GenerateToken(userID, "user")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, userID int64, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, userID))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return resp.Error.Code
}

var errBoom = errors.New("boom")
