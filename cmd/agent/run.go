// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/groovesync/internal/eventbus"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/supervisor"
	intsync "github.com/tomtom215/groovesync/internal/sync"
)

func (c *cli) runCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync periodically until interrupted",
		Long: `Start the sync scheduler under a supervisor. One run starts immediately,
then one per interval. Runs inside the recent-sync threshold are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("interval") {
				c.cfg.Client.Interval = interval
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "override the configured sync interval")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	a, err := openAgent(&c.cfg.Client)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing agent")
		}
	}()

	tree, err := supervisor.NewSupervisorTree("groovesync-agent", logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}, supervisor.LayerSync)
	if err != nil {
		return err
	}
	if _, err := tree.Add(supervisor.LayerSync, intsync.NewScheduler(a.sync, c.cfg.Client.Interval)); err != nil {
		return err
	}

	if err := logBusEvents(ctx, a.bus); err != nil {
		logging.Warn().Err(err).Msg("Event logging disabled")
	}

	logging.Info().
		Str("device_id", c.cfg.Client.DeviceID).
		Str("base_url", c.cfg.Client.BaseURL).
		Msg("Sync agent started")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Sync agent stopped")
	return nil
}

// logBusEvents writes applied pages and offline toggles to the debug log
// until ctx ends.
func logBusEvents(ctx context.Context, bus *eventbus.Bus) error {
	changes, err := eventbus.EntityChanged.Subscribe(ctx, bus)
	if err != nil {
		return err
	}
	offline, err := eventbus.OfflineModeChanged.Subscribe(ctx, bus)
	if err != nil {
		return err
	}

	go func() {
		for changes != nil || offline != nil {
			select {
			case ev, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				logging.Debug().
					Str("entity_type", string(ev.EntityType)).
					Int("upserted", len(ev.Upserted)).
					Int("removed", len(ev.Removed)).
					Msg("Local replica updated")
			case ev, ok := <-offline:
				if !ok {
					offline = nil
					continue
				}
				logging.Info().Bool("offline", ev.Offline).Msg("Offline mode changed")
			}
		}
	}()
	return nil
}
