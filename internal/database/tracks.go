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
	"strings"
	"time"

	"github.com/tomtom215/groovesync/internal/models"
)

const trackColumns = `t.id, t.user_id, t.name, t.artist, t.featuring, t.album, t.track_number,
	t.length, t.release_year, t.genre, t.play_count, t.private, t.hidden, t.in_review,
	t.note, t.last_played, t.added_to_library, t.created_at, t.updated_at`

func scanTrack(sc rowScanner, extra ...any) (*models.Track, error) {
	var (
		t           models.Track
		trackNumber sql.NullInt64
		releaseYear sql.NullInt64
		lastPlayed  sql.NullTime
		added       sql.NullTime
		created     time.Time
		updated     time.Time
	)
	dest := []any{
		&t.ID, &t.UserID, &t.Name, &t.Artist, &t.Featuring, &t.Album, &trackNumber,
		&t.Length, &releaseYear, &t.Genre, &t.PlayCount, &t.Private, &t.Hidden, &t.InReview,
		&t.Note, &lastPlayed, &added, &created, &updated,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.TrackNumber = nullInt(trackNumber)
	t.ReleaseYear = nullInt(releaseYear)
	t.LastPlayed = nullTimestamp(lastPlayed)
	t.AddedToLibrary = nullTimestamp(added)
	t.CreatedAt = models.NewTimestamp(created.UTC())
	t.UpdatedAt = models.NewTimestamp(updated.UTC())
	return &t, nil
}

// CreateTrack inserts t for t.UserID. ID and the stamps are filled in.
func (db *DB) CreateTrack(ctx context.Context, t *models.Track) error {
	now := db.stamp()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO tracks (user_id, name, artist, featuring, album, track_number, length,
			release_year, genre, play_count, private, hidden, in_review, note, last_played,
			added_to_library, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		t.UserID, t.Name, t.Artist, t.Featuring, t.Album, intArg(t.TrackNumber), t.Length,
		intArg(t.ReleaseYear), t.Genre, t.PlayCount, t.Private, t.Hidden, t.InReview, t.Note,
		timestampArg(t.LastPlayed), timestampArg(t.AddedToLibrary), now, now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}
	t.CreatedAt = models.NewTimestamp(now)
	t.UpdatedAt = models.NewTimestamp(now)
	return nil
}

// UpdateTrack overwrites the editable fields of a live track owned by
// t.UserID and bumps updated_at.
func (db *DB) UpdateTrack(ctx context.Context, t *models.Track) error {
	now := db.stamp()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE tracks SET name = ?, artist = ?, featuring = ?, album = ?, track_number = ?,
			length = ?, release_year = ?, genre = ?, private = ?, hidden = ?, in_review = ?,
			note = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted = FALSE`,
		t.Name, t.Artist, t.Featuring, t.Album, intArg(t.TrackNumber), t.Length,
		intArg(t.ReleaseYear), t.Genre, t.Private, t.Hidden, t.InReview, t.Note, now,
		t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("failed to update track %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTrackNotFound
	}
	t.UpdatedAt = models.NewTimestamp(now)
	return nil
}

// DeleteTrack soft-deletes a track and every playlist entry that points at
// it, so that clients see both removals in the change feed.
func (db *DB) DeleteTrack(ctx context.Context, userID, trackID int64) error {
	now := db.stamp()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tracks SET deleted = TRUE, updated_at = ? WHERE id = ? AND user_id = ? AND deleted = FALSE`,
			now, trackID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete track %d: %w", trackID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTrackNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE playlist_tracks SET deleted = TRUE, updated_at = ? WHERE track_id = ? AND deleted = FALSE`,
			now, trackID); err != nil {
			return fmt.Errorf("failed to delete playlist entries for track %d: %w", trackID, err)
		}
		return nil
	})
}

// GetTrack loads a live track regardless of owner.
func (db *DB) GetTrack(ctx context.Context, trackID int64) (*models.Track, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks t WHERE t.id = ? AND t.deleted = FALSE`, trackID)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load track %d: %w", trackID, err)
	}
	return t, nil
}

// GetTracksByIDs loads the distinct live tracks named by ids that viewerID
// may see: its own tracks plus anyone's public tracks. The result is keyed
// by id; callers decide what a missing id means.
func (db *DB) GetTracksByIDs(ctx context.Context, viewerID int64, ids []int64) (map[int64]*models.Track, error) {
	out := make(map[int64]*models.Track, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	seen := make(map[int64]struct{}, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, viewerID)
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+trackColumns+`
		FROM tracks t
		WHERE t.deleted = FALSE
		  AND (t.user_id = ? OR t.private = FALSE)
		  AND t.id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		recordQuery("select", "tracks", start, err)
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		out[t.ID] = t
	}
	err = rows.Err()
	recordQuery("select", "tracks", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}
	return out, nil
}
