// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/groovesync/internal/models"
	intsync "github.com/tomtom215/groovesync/internal/sync"
)

func (c *cli) syncCmd() *cobra.Command {
	var (
		types []string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and exit",
		Long: `Fetch every change since the stored cursors and apply it locally.

With --type only the named entity types are synced; cursors of the other
types are left alone. Without --force the run is skipped when a full sync
finished within the recent-sync threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entityTypes, err := parseTypes(types)
			if err != nil {
				return err
			}

			a, err := openAgent(&c.cfg.Client)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			result, err := a.sync.Run(cmd.Context(), intsync.Options{
				EntityTypes:           entityTypes,
				AbortIfRecentlySynced: !force,
				OnPage: func(p intsync.PageProgress) {
					fmt.Fprintf(c.out, "  %-14s page %d/%d (%d changes)\n", p.EntityType, p.PageNumber+1, p.TotalPages, p.Applied)
				},
			})
			if err != nil {
				return fmt.Errorf("sync aborted: %w", err)
			}
			return c.printResult(result, time.Since(start))
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "entity types to sync (track, playlist, playlistTrack, user, reviewSource)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "sync even if a full sync finished recently")
	return cmd
}

func (c *cli) printResult(r *intsync.Result, elapsed time.Duration) error {
	if r.Skipped != "" {
		fmt.Fprintf(c.out, "Sync skipped: %s\n", r.Skipped)
		return nil
	}
	fmt.Fprintf(c.out, "Sync finished in %v up to %d\n", elapsed.Round(time.Millisecond), r.Maximum.Millis())
	fmt.Fprintf(c.out, "  synced:    %s\n", joinTypes(r.Synced))
	fmt.Fprintf(c.out, "  unchanged: %s\n", joinTypes(r.Unchanged))
	fmt.Fprintf(c.out, "  pages:     %d\n", r.Pages)
	if len(r.Failed) == 0 {
		return nil
	}
	failed := make([]string, 0, len(r.Failed))
	for t, err := range r.Failed {
		failed = append(failed, fmt.Sprintf("%s: %v", t, err))
	}
	sort.Strings(failed)
	for _, f := range failed {
		fmt.Fprintf(c.out, "  failed:    %s\n", f)
	}
	return fmt.Errorf("%d entity type(s) failed", len(r.Failed))
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cursors, offline mode and the listen queue",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a, err := openAgent(&c.cfg.Client)
			if err != nil {
				return err
			}
			defer a.Close()

			userID := c.cfg.Client.UserID
			cursors, err := a.store.GetCursors(userID, models.AllEntityTypes)
			if err != nil {
				return err
			}
			lastSync, err := a.store.LastSync(userID)
			if err != nil {
				return err
			}
			offline, err := a.store.Offline()
			if err != nil {
				return err
			}
			queued, err := a.store.ListenQueueLen()
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "Device:       %s (user %d)\n", c.cfg.Client.DeviceID, userID)
			fmt.Fprintf(c.out, "Offline:      %v\n", offline || c.cfg.Client.Offline)
			fmt.Fprintf(c.out, "Last full:    %s\n", formatStamp(lastSync))
			fmt.Fprintf(c.out, "Queued plays: %d\n", queued)
			fmt.Fprintln(c.out, "Cursors:")
			for _, t := range models.AllEntityTypes {
				cur := cursors[t]
				fmt.Fprintf(c.out, "  %-14s synced %s, attempted %s\n", t, formatStamp(cur.LastSynced), formatStamp(cur.LastSyncAttempted))
			}
			return nil
		},
	}
}

func (c *cli) listenCmd() *cobra.Command {
	var (
		tz       string
		at       int64
		lat, lon float64
		withGeo  bool
	)
	cmd := &cobra.Command{
		Use:   "listen <track-id>",
		Short: "Report that a track was played",
		Long: `Send a listen report. When the server cannot be reached the report is
queued locally and replayed after the next successful sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trackID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || trackID <= 0 {
				return fmt.Errorf("invalid track id %q", args[0])
			}

			req := models.MarkListenedRequest{TrackID: trackID, IanaTimezone: tz}
			if at > 0 {
				req.TimeListenedAt = models.TimestampFromMillis(at)
			}
			if withGeo {
				req.Latitude, req.Longitude = &lat, &lon
			}

			a, err := openAgent(&c.cfg.Client)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.listens.MarkListened(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Listen for track %d recorded\n", trackID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "UTC", "IANA time zone of the listener")
	cmd.Flags().Int64Var(&at, "at", 0, "listen time in epoch milliseconds (default: now)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		withGeo = cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")
	}
	return cmd
}

func (c *cli) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay-listens",
		Short: "Send queued listen reports now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openAgent(&c.cfg.Client)
			if err != nil {
				return err
			}
			defer a.Close()

			replayed, err := a.listens.RetryFailed(cmd.Context())
			if errors.Is(err, intsync.ErrReplayInProgress) {
				fmt.Fprintln(c.out, "A replay is already running")
				return nil
			}
			if err != nil {
				return err
			}
			left, err := a.store.ListenQueueLen()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Replayed %d listen(s), %d still queued\n", replayed, left)
			return nil
		},
	}
}

func (c *cli) offlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "offline on|off",
		Short:     "Persist offline mode; syncs and listen sends are deferred while on",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openAgent(&c.cfg.Client)
			if err != nil {
				return err
			}
			defer a.Close()

			on := args[0] == "on"
			if err := a.sync.SetOffline(on); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Offline mode %s\n", args[0])
			return nil
		},
	}
}

func parseTypes(raw []string) ([]models.EntityType, error) {
	out := make([]models.EntityType, 0, len(raw))
	for _, r := range raw {
		t, err := models.ParseEntityType(strings.TrimSpace(r))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func joinTypes(types []models.EntityType) string {
	if len(types) == 0 {
		return "-"
	}
	s := make([]string, len(types))
	for i, t := range types {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}

func formatStamp(ts models.Timestamp) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.UTC().Format(time.RFC3339)
}
