// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/groovesync/internal/logging"
)

// Scheduler runs the orchestrator periodically. It implements
// suture.Service.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
}

// NewScheduler creates a scheduler firing every interval.
func NewScheduler(o *Orchestrator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{orchestrator: o, interval: interval}
}

// Serve runs one sync immediately and then on every tick, until ctx is
// canceled. Failed runs are logged; the next tick retries.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("Sync scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.orchestrator.WaitBackground()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.orchestrator.Run(ctx, Options{AbortIfRecentlySynced: true})
	if err != nil {
		logging.Warn().Err(err).Msg("Scheduled sync failed")
		return
	}
	if result.Skipped != "" {
		logging.Debug().Str("reason", string(result.Skipped)).Msg("Scheduled sync skipped")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Scheduler) String() string {
	return "sync-scheduler"
}
