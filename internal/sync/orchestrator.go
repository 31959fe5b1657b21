// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/eventbus"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

// RunState is the orchestrator's position in a run.
type RunState int32

const (
	StateIdle RunState = iota
	StateChecking
	StateFetching
	StateCommitting
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateChecking:
		return "CHECKING"
	case StateFetching:
		return "FETCHING"
	case StateCommitting:
		return "COMMITTING"
	default:
		return "UNKNOWN"
	}
}

// SkipReason explains why a run did no work.
type SkipReason string

const (
	SkipBusy    SkipReason = "busy"
	SkipOffline SkipReason = "offline"
	SkipRecent  SkipReason = "recent"
)

// PageProgress is passed to Options.OnPage after every applied page.
type PageProgress struct {
	EntityType models.EntityType
	PageNumber int
	TotalPages int
	Applied    int
}

// Options select what a run does.
type Options struct {
	// EntityTypes to sync. Empty means all.
	EntityTypes []models.EntityType
	// AbortIfRecentlySynced skips the run when the last full run finished
	// less than the recent-sync threshold ago.
	AbortIfRecentlySynced bool
	// OnPage is called from the fetching goroutine of the entity type.
	OnPage func(PageProgress)
}

// Result summarises one run. A skipped run has only Skipped set.
type Result struct {
	Skipped   SkipReason
	Maximum   models.Timestamp
	Synced    []models.EntityType
	Unchanged []models.EntityType
	Failed    map[models.EntityType]error
	Pages     int
}

// OK reports whether every requested type finished without error.
func (r *Result) OK() bool {
	return r.Skipped == "" && len(r.Failed) == 0
}

type foregroundKey struct{}

// WithForeground marks ctx as belonging to an interactive caller. Runs
// refuse such contexts.
func WithForeground(ctx context.Context) context.Context {
	return context.WithValue(ctx, foregroundKey{}, true)
}

// IsForeground reports whether ctx was marked by WithForeground.
func IsForeground(ctx context.Context) bool {
	v, _ := ctx.Value(foregroundKey{}).(bool)
	return v
}

// Orchestrator runs syncs for one user on one device.
type Orchestrator struct {
	api     API
	store   *Store
	bus     *eventbus.Bus
	listens *ListenReporter

	userID          int64
	pageSize        int
	workers         int
	recentThreshold time.Duration
	offline         bool

	state atomic.Int32
	now   func() time.Time

	background sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. bus and listens may be nil.
func NewOrchestrator(cfg *config.ClientConfig, api API, store *Store, bus *eventbus.Bus, listens *ListenReporter) *Orchestrator {
	o := &Orchestrator{
		api:             api,
		store:           store,
		bus:             bus,
		listens:         listens,
		userID:          cfg.UserID,
		pageSize:        cfg.PageSize,
		workers:         cfg.Workers,
		recentThreshold: cfg.RecentSyncThreshold,
		offline:         cfg.Offline,
		now:             time.Now,
	}
	if o.pageSize <= 0 {
		o.pageSize = 400
	}
	if o.workers <= 0 {
		o.workers = len(models.AllEntityTypes)
	}
	if o.recentThreshold <= 0 {
		o.recentThreshold = 5 * time.Minute
	}
	return o
}

// SetClockForTesting replaces the wall clock.
func (o *Orchestrator) SetClockForTesting(now func() time.Time) {
	o.now = now
}

// State returns the current run state.
func (o *Orchestrator) State() RunState {
	return RunState(o.state.Load())
}

// SetOffline persists the offline flag and announces the change.
func (o *Orchestrator) SetOffline(offline bool) error {
	if err := o.store.SetOffline(offline); err != nil {
		return err
	}
	if o.bus != nil {
		if err := eventbus.OfflineModeChanged.Publish(o.bus, eventbus.OfflineModeEvent{Offline: offline}); err != nil {
			logging.Warn().Err(err).Msg("Failed to publish offline mode change")
		}
	}
	return nil
}

// Run performs one sync. Busy, offline and recently synced runs return a
// skipped Result and no error. An error means the run aborted before any
// cursor was written.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if IsForeground(ctx) {
		return nil, ErrForegroundContext
	}
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateChecking)) {
		metrics.RecordSyncRun("skipped_busy", 0)
		return &Result{Skipped: SkipBusy}, nil
	}
	defer o.state.Store(int32(StateIdle))

	types, full, err := requestedTypes(opts.EntityTypes)
	if err != nil {
		return nil, err
	}

	if skip, err := o.checkSkip(opts); err != nil || skip != "" {
		if skip != "" {
			metrics.RecordSyncRun("skipped_"+string(skip), 0)
			return &Result{Skipped: skip}, nil
		}
		return nil, err
	}

	start := time.Now()
	result, err := o.run(ctx, types, full, opts)
	if err != nil {
		metrics.RecordSyncRun("aborted", time.Since(start))
		logging.Ctx(ctx).Warn().Err(err).Msg("Sync run aborted")
		return nil, err
	}

	outcome := "completed"
	if !result.OK() {
		outcome = "partial"
	}
	metrics.RecordSyncRun(outcome, time.Since(start))
	logging.Ctx(ctx).Info().
		Int("synced", len(result.Synced)).
		Int("unchanged", len(result.Unchanged)).
		Int("failed", len(result.Failed)).
		Int("pages", result.Pages).
		Int64("maximum", result.Maximum.Millis()).
		Dur("duration", time.Since(start)).
		Msg("Sync run finished")

	o.flushListens()
	return result, nil
}

func (o *Orchestrator) checkSkip(opts Options) (SkipReason, error) {
	offline := o.offline
	if !offline {
		stored, err := o.store.Offline()
		if err != nil {
			return "", fmt.Errorf("read offline flag: %w", err)
		}
		offline = stored
	}
	if offline {
		return SkipOffline, nil
	}

	if opts.AbortIfRecentlySynced {
		last, err := o.store.LastSync(o.userID)
		if err != nil {
			return "", fmt.Errorf("read last sync: %w", err)
		}
		if !last.IsZero() && o.now().Sub(last.Time) < o.recentThreshold {
			return SkipRecent, nil
		}
	}
	return "", nil
}

// typeOutcome is what one entity type's fetch produced.
type typeOutcome struct {
	changed bool
	pages   int
	err     error
}

func (o *Orchestrator) run(ctx context.Context, types []models.EntityType, full bool, opts Options) (*Result, error) {
	maximum := models.NewTimestamp(o.now())

	lastModified, err := o.api.LastModified(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch last modified: %w", err)
	}
	for _, t := range types {
		if _, ok := lastModified[t]; !ok {
			return nil, fmt.Errorf("%w: no last modified time for %s", ErrMalformedResponse, t)
		}
	}

	cursors, err := o.store.GetCursors(o.userID, types)
	if err != nil {
		return nil, fmt.Errorf("read cursors: %w", err)
	}

	o.state.Store(int32(StateFetching))
	outcomes := make(map[models.EntityType]*typeOutcome, len(types))
	var mu sync.Mutex

	// Unchanged types are settled before any worker starts; workers only
	// write outcomes under mu.
	changed := make([]models.EntityType, 0, len(types))
	for _, t := range types {
		if cursors[t].LastSynced.Before(lastModified[t]) {
			changed = append(changed, t)
		} else {
			outcomes[t] = &typeOutcome{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, t := range changed {
		minimum := cursors[t].LastSynced
		g.Go(func() error {
			pages, err := o.fetchType(gctx, t, minimum, maximum, opts.OnPage)
			mu.Lock()
			outcomes[t] = &typeOutcome{changed: true, pages: pages, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	o.state.Store(int32(StateCommitting))
	return o.commit(ctx, types, full, cursors, outcomes, maximum), nil
}

// fetchType pages through the feed of one type, applying each page as it
// arrives. Every page after the first resumes after the previous page's
// last id.
func (o *Orchestrator) fetchType(ctx context.Context, t models.EntityType, minimum, maximum models.Timestamp, onPage func(PageProgress)) (int, error) {
	applier, err := newTypeApplier(o.store, t)
	if err != nil {
		return 0, err
	}

	pages := 0
	var afterID int64
	for page := 0; ; page++ {
		resp, err := o.api.Changes(ctx, models.ChangeWindow{
			EntityType: t,
			Minimum:    minimum,
			Maximum:    maximum,
			Page:       page,
			PageSize:   o.pageSize,
			AfterID:    afterID,
		})
		if err != nil {
			return pages, fmt.Errorf("fetch %s page %d: %w", t, page, err)
		}

		upserted, removed, lastID, err := applier.apply(resp)
		if err != nil {
			return pages, err
		}
		pages++
		metrics.SyncPagesApplied.WithLabelValues(string(t)).Inc()

		progress := PageProgress{
			EntityType: t,
			PageNumber: page,
			TotalPages: resp.Pageable.TotalPages,
			Applied:    len(upserted) + len(removed),
		}
		if onPage != nil {
			onPage(progress)
		}
		o.publishPage(progress, upserted, removed)

		if !resp.Pageable.HasNext() {
			return pages, nil
		}
		if resp.Len() == 0 || lastID <= afterID {
			return pages, fmt.Errorf("%w: %s page %d reports more pages but does not advance (last id %d)",
				ErrMalformedResponse, t, page, lastID)
		}
		afterID = lastID
	}
}

func (o *Orchestrator) publishPage(p PageProgress, upserted, removed []int64) {
	if o.bus == nil {
		return
	}
	if err := eventbus.SyncProgress.Publish(o.bus, eventbus.SyncProgressEvent(p)); err != nil {
		logging.Debug().Err(err).Msg("Failed to publish sync progress")
	}
	if len(upserted) == 0 && len(removed) == 0 {
		return
	}
	if err := eventbus.EntityChanged.Publish(o.bus, eventbus.EntityChangedEvent{
		EntityType: p.EntityType,
		Upserted:   upserted,
		Removed:    removed,
	}); err != nil {
		logging.Debug().Err(err).Msg("Failed to publish entity change")
	}
}

// commit writes cursors. Every type's lastSyncAttempted moves to maximum;
// lastSynced only for types whose pages all applied.
func (o *Orchestrator) commit(ctx context.Context, types []models.EntityType, full bool,
	cursors map[models.EntityType]models.SyncCursor, outcomes map[models.EntityType]*typeOutcome, maximum models.Timestamp) *Result {

	result := &Result{Maximum: maximum, Failed: make(map[models.EntityType]error)}
	for _, t := range types {
		out := outcomes[t]
		cursor := cursors[t]
		cursor.LastSyncAttempted = maximum
		result.Pages += out.pages

		switch {
		case out.err != nil:
			result.Failed[t] = out.err
			metrics.SyncEntityResults.WithLabelValues(string(t), "failed").Inc()
			logging.Ctx(ctx).Warn().Err(out.err).Str("entity_type", string(t)).Msg("Entity type sync failed")
		case out.changed:
			cursor.LastSynced = maximum
			result.Synced = append(result.Synced, t)
			metrics.SyncEntityResults.WithLabelValues(string(t), "synced").Inc()
		default:
			result.Unchanged = append(result.Unchanged, t)
			metrics.SyncEntityResults.WithLabelValues(string(t), "unchanged").Inc()
		}

		if err := o.store.SaveCursor(cursor); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("entity_type", string(t)).Msg("Failed to save sync cursor")
			if out.err == nil {
				result.Failed[t] = fmt.Errorf("save cursor: %w", err)
				result.Synced = removeType(result.Synced, t)
				result.Unchanged = removeType(result.Unchanged, t)
			}
		}
	}

	if full {
		if err := o.store.SetLastSync(o.userID, maximum); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to save last sync marker")
		}
	}
	return result
}

// flushListens replays queued listens without holding up the caller.
func (o *Orchestrator) flushListens() {
	if o.listens == nil {
		return
	}
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := o.listens.RetryFailed(ctx); err != nil && !errors.Is(err, ErrReplayInProgress) {
			logging.Warn().Err(err).Msg("Failed to replay queued listens")
		}
	}()
}

// WaitBackground blocks until background work started by runs finishes.
func (o *Orchestrator) WaitBackground() {
	o.background.Wait()
}

// requestedTypes validates and de-duplicates the requested types, returning
// them in canonical order, and whether they cover every entity type.
func requestedTypes(in []models.EntityType) ([]models.EntityType, bool, error) {
	if len(in) == 0 {
		return append([]models.EntityType(nil), models.AllEntityTypes...), true, nil
	}
	seen := make(map[models.EntityType]bool, len(in))
	for _, t := range in {
		if !t.Valid() {
			return nil, false, fmt.Errorf("unknown entity type %q", t)
		}
		seen[t] = true
	}
	out := make([]models.EntityType, 0, len(seen))
	for _, t := range models.AllEntityTypes {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out, len(out) == len(models.AllEntityTypes), nil
}

func removeType(types []models.EntityType, t models.EntityType) []models.EntityType {
	out := types[:0]
	for _, v := range types {
		if v != t {
			out = append(out, v)
		}
	}
	return out
}
