// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/models"
)

func newTestAPIClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAPIClient(&config.ClientConfig{BaseURL: srv.URL + "/", Token: "secret"})
}

func TestAPIClientLastModified(t *testing.T) {
	c := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sync/last-modified" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"lastModifiedTimestamps":{"track":1500,"user":0}}`))
	})

	got, err := c.LastModified(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got[models.EntityTrack].Millis() != 1500 || !got[models.EntityUser].IsZero() {
		t.Errorf("LastModified() = %v", got)
	}
}

func TestAPIClientLastModifiedMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"missing map": `{}`,
		"not json":    `<html>`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestAPIClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			if _, err := c.LastModified(context.Background()); !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("LastModified() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestAPIClientChanges(t *testing.T) {
	c := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sync/entity-type/playlistTrack/minimum/100/maximum/200" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("size") != "2" || r.URL.Query().Get("page") != "1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"content":{"new":[{"id":4}],"modified":[],"removed":[9]},` +
			`"pageable":{"offset":2,"pageSize":2,"pageNumber":1,"totalPages":2,"totalElements":4}}`))
	})

	resp, err := c.Changes(context.Background(), models.ChangeWindow{
		EntityType: models.EntityPlaylistTrack,
		Minimum:    models.TimestampFromMillis(100),
		Maximum:    models.TimestampFromMillis(200),
		Page:       1,
		PageSize:   2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Content.New) != 1 || resp.Content.Removed[0] != 9 || resp.Pageable.HasNext() {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestAPIClientMarkListenedError(t *testing.T) {
	c := newTestAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.MarkListenedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID != 3 {
			t.Errorf("request body = %+v, %v", req, err)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","error":{"code":"TRACK_NOT_FOUND","message":"no such track"}}`))
	})

	err := c.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 3, IanaTimezone: "UTC"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("MarkListened() error = %v, want *HTTPError", err)
	}
	if httpErr.Code != "TRACK_NOT_FOUND" || !IsClientError(err) {
		t.Errorf("unexpected error %+v", httpErr)
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	api := newFakeAPI()
	api.lastModErr = errUnavailable
	cb := NewCircuitBreakerClient(api)

	for i := 0; i < 5; i++ {
		if _, err := cb.LastModified(context.Background()); !errors.Is(err, errUnavailable) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if _, err := cb.LastModified(context.Background()); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("call on open breaker error = %v", err)
	}
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	api := newFakeAPI()
	cb := NewCircuitBreakerClient(api)
	for i := 0; i < 10; i++ {
		api.listenErrs = []error{&HTTPError{StatusCode: http.StatusBadRequest}}
		_ = cb.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 1})
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreakerPassesResults(t *testing.T) {
	api := newFakeAPI()
	api.setRows(models.EntityTrack, 10, feedRow{id: 1, kind: "new", payload: trackJSON(1, "a")})
	cb := NewCircuitBreakerClient(api)

	lm, err := cb.LastModified(context.Background())
	if err != nil || lm[models.EntityTrack].Millis() != 10 {
		t.Fatalf("LastModified() = %v, %v", lm, err)
	}
	page, err := cb.Changes(context.Background(), models.ChangeWindow{EntityType: models.EntityTrack, PageSize: 10})
	if err != nil || len(page.Content.New) != 1 {
		t.Fatalf("Changes() = %+v, %v", page, err)
	}
}
