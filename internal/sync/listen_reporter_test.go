// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/tomtom215/groovesync/internal/models"
)

func newTestReporter(t *testing.T, api API) (*ListenReporter, *Store) {
	t.Helper()
	store := openTestStore(t)
	r := NewListenReporter(testClientConfig(), api, store)
	r.backoff = 0
	return r, store
}

func TestMarkListenedSends(t *testing.T) {
	api := newFakeAPI()
	r, store := newTestReporter(t, api)

	if err := r.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	if api.listenCount() != 1 {
		t.Errorf("sent %d, want 1", api.listenCount())
	}
	if api.listens[0].TimeListenedAt.IsZero() {
		t.Error("timeListenedAt should default to now")
	}
	if n, _ := store.ListenQueueLen(); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}

func TestMarkListenedRetriesThenQueues(t *testing.T) {
	api := newFakeAPI()
	api.listenErrs = []error{errUnavailable, errUnavailable, errUnavailable}
	r, store := newTestReporter(t, api)

	if err := r.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC"}); err != nil {
		t.Fatalf("MarkListened() error = %v, want nil after queuing", err)
	}
	entries, _ := store.PendingListens()
	if len(entries) != 1 || entries[0].Attempts != 3 {
		t.Fatalf("queue = %+v, want one entry with 3 attempts", entries)
	}

	replayed, err := r.RetryFailed(context.Background())
	if err != nil || replayed != 1 {
		t.Fatalf("RetryFailed() = %d, %v", replayed, err)
	}
	if n, _ := store.ListenQueueLen(); n != 0 {
		t.Errorf("queue length = %d after replay, want 0", n)
	}
}

func TestMarkListenedRecoversWithinAttempts(t *testing.T) {
	api := newFakeAPI()
	api.listenErrs = []error{errUnavailable, nil}
	r, store := newTestReporter(t, api)

	if err := r.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	if api.listenCount() != 1 {
		t.Errorf("sent %d, want 1", api.listenCount())
	}
	if n, _ := store.ListenQueueLen(); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
}

func TestMarkListenedDropsClientError(t *testing.T) {
	api := newFakeAPI()
	rejected := &HTTPError{StatusCode: http.StatusBadRequest, Code: "TRACK_NOT_FOUND"}
	api.listenErrs = []error{rejected}
	r, store := newTestReporter(t, api)

	err := r.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC"})
	if !errors.Is(err, rejected) {
		t.Fatalf("MarkListened() error = %v, want the client error", err)
	}
	if n, _ := store.ListenQueueLen(); n != 0 {
		t.Errorf("client errors must not be queued, queue length = %d", n)
	}
}

func TestMarkListenedOfflineQueues(t *testing.T) {
	api := newFakeAPI()
	r, store := newTestReporter(t, api)
	if err := store.SetOffline(true); err != nil {
		t.Fatal(err)
	}

	if err := r.MarkListened(context.Background(), models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	if api.listenCount() != 0 {
		t.Error("offline listens must not hit the network")
	}
	if n, _ := store.ListenQueueLen(); n != 1 {
		t.Errorf("queue length = %d, want 1", n)
	}

	replayed, err := r.RetryFailed(context.Background())
	if err != nil || replayed != 0 {
		t.Errorf("RetryFailed() offline = %d, %v; want no replay", replayed, err)
	}
}

func TestRetryFailedKeepsFailingEntries(t *testing.T) {
	api := newFakeAPI()
	r, store := newTestReporter(t, api)
	for _, id := range []int64{1, 2, 3} {
		if _, err := store.EnqueueListen(models.MarkListenedRequest{TrackID: id, IanaTimezone: "UTC"}, 3, nil); err != nil {
			t.Fatal(err)
		}
	}
	api.listenErrs = []error{nil, errUnavailable, &HTTPError{StatusCode: http.StatusBadRequest}}

	replayed, err := r.RetryFailed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if replayed != 1 {
		t.Errorf("replayed = %d, want 1", replayed)
	}
	entries, _ := store.PendingListens()
	if len(entries) != 1 || entries[0].Attempts != 4 {
		t.Errorf("remaining = %+v, want one entry with 4 attempts", entries)
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&HTTPError{StatusCode: 400}, true},
		{&HTTPError{StatusCode: 404}, true},
		{&HTTPError{StatusCode: 429}, false},
		{&HTTPError{StatusCode: 503}, false},
		{errUnavailable, false},
	}
	for _, tt := range tests {
		if got := IsClientError(tt.err); got != tt.want {
			t.Errorf("IsClientError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
