// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

// ErrReplayInProgress is returned when RetryFailed is already running.
var ErrReplayInProgress = errors.New("listen replay already in progress")

// ListenReporter sends mark-listened requests. Failures are retried a few
// times and then parked in the store's durable queue, which RetryFailed
// drains later.
type ListenReporter struct {
	api      API
	store    *Store
	attempts int
	backoff  time.Duration
	limiter  *rate.Limiter
	offline  bool
	lowPower bool

	replaying atomic.Bool
}

// NewListenReporter creates a reporter from the agent configuration.
func NewListenReporter(cfg *config.ClientConfig, api API, store *Store) *ListenReporter {
	attempts := cfg.ListenAttempts
	if attempts <= 0 {
		attempts = 3
	}
	replayRate := cfg.ReplayRate
	if replayRate <= 0 {
		replayRate = 5
	}
	return &ListenReporter{
		api:      api,
		store:    store,
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Limit(replayRate), 1),
		offline:  cfg.Offline,
		lowPower: cfg.LowPower,
	}
}

// MarkListened reports one play. It returns nil once the request was sent
// or queued. Only a request the server rejects as invalid is returned as an
// error; it is not queued.
func (r *ListenReporter) MarkListened(ctx context.Context, req models.MarkListenedRequest) error {
	if req.TimeListenedAt.IsZero() {
		req.TimeListenedAt = models.Now()
	}

	if r.deferred() {
		return r.enqueue(req, 0, nil)
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		lastErr = r.api.MarkListened(ctx, req)
		if lastErr == nil {
			metrics.ListenReports.WithLabelValues("sent").Inc()
			return nil
		}
		if IsClientError(lastErr) {
			metrics.ListenReports.WithLabelValues("dropped").Inc()
			logging.Warn().Err(lastErr).Int64("track_id", req.TrackID).Msg("Server rejected listen, dropping")
			return lastErr
		}
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return r.enqueue(req, attempt, ctx.Err())
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}

	logging.Debug().Err(lastErr).Int64("track_id", req.TrackID).Msg("Listen failed, queued for replay")
	return r.enqueue(req, r.attempts, lastErr)
}

// deferred reports whether listens should go straight to the queue.
func (r *ListenReporter) deferred() bool {
	if r.offline || r.lowPower {
		return true
	}
	offline, err := r.store.Offline()
	return err == nil && offline
}

func (r *ListenReporter) enqueue(req models.MarkListenedRequest, attempts int, lastErr error) error {
	if _, err := r.store.EnqueueListen(req, attempts, lastErr); err != nil {
		return fmt.Errorf("queue listen: %w", err)
	}
	metrics.ListenReports.WithLabelValues("queued").Inc()
	return nil
}

// RetryFailed replays the queue, paced by the replay rate. Replayed and
// rejected entries are removed; entries that fail again stay queued. It
// returns the number of entries delivered.
func (r *ListenReporter) RetryFailed(ctx context.Context) (int, error) {
	if !r.replaying.CompareAndSwap(false, true) {
		return 0, ErrReplayInProgress
	}
	defer r.replaying.Store(false)

	if r.deferred() {
		return 0, nil
	}

	entries, err := r.store.PendingListens()
	if err != nil {
		return 0, fmt.Errorf("read listen queue: %w", err)
	}

	replayed := 0
	for _, e := range entries {
		if err := r.limiter.Wait(ctx); err != nil {
			return replayed, err
		}

		err := r.api.MarkListened(ctx, e.Request)
		switch {
		case err == nil:
			replayed++
			metrics.ListenReports.WithLabelValues("replayed").Inc()
		case IsClientError(err):
			metrics.ListenReports.WithLabelValues("dropped").Inc()
			logging.Warn().Err(err).Str("entry_id", e.ID).Msg("Server rejected queued listen, dropping")
		default:
			if recErr := r.store.RecordListenAttempt(e.ID, err); recErr != nil {
				return replayed, recErr
			}
			continue
		}
		if err := r.store.DeleteListen(e.ID); err != nil {
			return replayed, fmt.Errorf("remove replayed listen: %w", err)
		}
	}

	if replayed > 0 {
		logging.Info().Int("replayed", replayed).Int("queued", len(entries)).Msg("Replayed queued listens")
	}
	return replayed, nil
}
