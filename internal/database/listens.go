// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/groovesync/internal/models"
)

// MarkListened records one completed listen of a track owned by userID. The
// track's play count and last-played time are updated in the same
// transaction, which also makes it show up as modified in the change feed.
func (db *DB) MarkListened(ctx context.Context, userID int64, req models.MarkListenedRequest) error {
	now := db.stamp()
	listenedAt := now
	if !req.TimeListenedAt.IsZero() {
		listenedAt = req.TimeListenedAt.UTC()
	}

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tracks SET play_count = play_count + 1, last_played = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND deleted = FALSE`,
			listenedAt, now, req.TrackID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTrackNotFound
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO track_listens (track_id, user_id, listened_at, iana_timezone, latitude, longitude, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			req.TrackID, userID, listenedAt, req.IanaTimezone, floatArg(req.Latitude), floatArg(req.Longitude), now)
		return err
	})
	recordQuery("insert", "track_listens", start, err)
	if err != nil {
		if errors.Is(err, ErrTrackNotFound) {
			return err
		}
		return fmt.Errorf("failed to record listen of track %d: %w", req.TrackID, err)
	}
	return nil
}

// CountListens returns how many listens of trackID have been recorded.
func (db *DB) CountListens(ctx context.Context, trackID int64) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM track_listens WHERE track_id = ?`, trackID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listens: %w", err)
	}
	return n, nil
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
