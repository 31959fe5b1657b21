// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("")
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testClientConfig() *config.ClientConfig {
	return &config.ClientConfig{
		UserID:              1,
		PageSize:            2,
		Workers:             2,
		RecentSyncThreshold: 0,
		ListenAttempts:      3,
		ReplayRate:          1000,
	}
}

// feedRow is one server-side change for the fake API.
type feedRow struct {
	id      int64
	kind    string // "new", "modified" or "removed"
	payload json.RawMessage
}

// fakeAPI serves a fixed change set per entity type.
type fakeAPI struct {
	mu           sync.Mutex
	lastModified map[models.EntityType]models.Timestamp
	lastModErr   error
	rows         map[models.EntityType][]feedRow
	failType     map[models.EntityType]error
	failOnPage   int
	// phantomRows is added to every reported row count, so pages past the
	// real rows claim to exist.
	phantomRows  int64
	// afterPage runs with the lock held once a page has been cut.
	afterPage    func(f *fakeAPI, w models.ChangeWindow)
	windows      []models.ChangeWindow
	listens      []models.MarkListenedRequest
	listenErrs   []error
	block        chan struct{}
}

func newFakeAPI() *fakeAPI {
	lm := make(map[models.EntityType]models.Timestamp)
	for _, t := range models.AllEntityTypes {
		lm[t] = models.Timestamp{}
	}
	return &fakeAPI{
		lastModified: lm,
		rows:         make(map[models.EntityType][]feedRow),
		failType:     make(map[models.EntityType]error),
	}
}

func trackJSON(id int64, name string) json.RawMessage {
	b, _ := json.Marshal(models.Track{ID: id, UserID: 1, Name: name})
	return b
}

func playlistJSON(id int64, name string) json.RawMessage {
	b, _ := json.Marshal(models.Playlist{ID: id, Name: name})
	return b
}

func (f *fakeAPI) setRows(t models.EntityType, modifiedAt int64, rows ...feedRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[t] = rows
	f.lastModified[t] = models.TimestampFromMillis(modifiedAt)
}

func (f *fakeAPI) LastModified(ctx context.Context) (map[models.EntityType]models.Timestamp, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastModErr != nil {
		return nil, f.lastModErr
	}
	out := make(map[models.EntityType]models.Timestamp, len(f.lastModified))
	for k, v := range f.lastModified {
		out[k] = v
	}
	return out, nil
}

func (f *fakeAPI) Changes(_ context.Context, w models.ChangeWindow) (*models.EntityChangeResponse[json.RawMessage], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, w)

	if err, ok := f.failType[w.EntityType]; ok && w.Page >= f.failOnPage {
		return nil, err
	}

	rows := append([]feedRow(nil), f.rows[w.EntityType]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	var pageable models.Pageable
	start := w.Page * w.PageSize
	if w.AfterID > 0 {
		remaining := rows[:0]
		for _, r := range rows {
			if r.id > w.AfterID {
				remaining = append(remaining, r)
			}
		}
		rows = remaining
		start = 0
		pageable = models.NewKeysetPageable(w.Page, w.PageSize, int64(len(rows))+f.phantomRows)
	} else {
		pageable = models.NewPageable(w.Page, w.PageSize, int64(len(rows))+f.phantomRows)
	}
	end := start + w.PageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}

	resp := &models.EntityChangeResponse[json.RawMessage]{
		Content: models.ChangeContent[json.RawMessage]{
			New:      []json.RawMessage{},
			Modified: []json.RawMessage{},
			Removed:  []int64{},
		},
		Pageable: pageable,
	}
	if f.afterPage != nil {
		defer f.afterPage(f, w)
	}
	for _, r := range rows[start:end] {
		switch r.kind {
		case "new":
			resp.Content.New = append(resp.Content.New, r.payload)
		case "modified":
			resp.Content.Modified = append(resp.Content.Modified, r.payload)
		case "removed":
			resp.Content.Removed = append(resp.Content.Removed, r.id)
		default:
			return nil, fmt.Errorf("bad fake row kind %q", r.kind)
		}
	}
	return resp, nil
}

func (f *fakeAPI) MarkListened(_ context.Context, req models.MarkListenedRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listenErrs) > 0 {
		err := f.listenErrs[0]
		f.listenErrs = f.listenErrs[1:]
		if err != nil {
			return err
		}
	}
	f.listens = append(f.listens, req)
	return nil
}

func (f *fakeAPI) pagesRequested(t models.EntityType) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pages []int
	for _, w := range f.windows {
		if w.EntityType == t {
			pages = append(pages, w.Page)
		}
	}
	return pages
}

func (f *fakeAPI) afterIDsRequested(t models.EntityType) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var after []int64
	for _, w := range f.windows {
		if w.EntityType == t {
			after = append(after, w.AfterID)
		}
	}
	return after
}

func (f *fakeAPI) listenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listens)
}

var errUnavailable = errors.New("server unavailable")
