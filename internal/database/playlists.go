// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/groovesync/internal/models"
)

// CreatePlaylist inserts a playlist and makes ownerID its owner, which puts
// it in that user's change feed.
func (db *DB) CreatePlaylist(ctx context.Context, ownerID int64, name string) (*models.Playlist, error) {
	now := db.stamp()
	p := &models.Playlist{Name: name, CreatedAt: models.NewTimestamp(now), UpdatedAt: models.NewTimestamp(now)}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO playlists (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id`,
			name, now, now).Scan(&p.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_users (playlist_id, user_id, ownership) VALUES (?, ?, 'OWNER')`,
			p.ID, ownerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	return p, nil
}

// SharePlaylist grants userID visibility of a playlist and its entries.
func (db *DB) SharePlaylist(ctx context.Context, playlistID, userID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO playlist_users (playlist_id, user_id, ownership) VALUES (?, ?, 'WRITER')
		 ON CONFLICT DO NOTHING`, playlistID, userID)
	if err != nil {
		return fmt.Errorf("failed to share playlist %d: %w", playlistID, err)
	}
	return nil
}

// DeletePlaylist soft-deletes a playlist and its entries.
func (db *DB) DeletePlaylist(ctx context.Context, playlistID int64) error {
	now := db.stamp()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE playlists SET deleted = TRUE, updated_at = ? WHERE id = ? AND deleted = FALSE`,
			now, playlistID)
		if err != nil {
			return fmt.Errorf("failed to delete playlist %d: %w", playlistID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPlaylistNotFound
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE playlist_tracks SET deleted = TRUE, updated_at = ? WHERE playlist_id = ? AND deleted = FALSE`,
			now, playlistID)
		return err
	})
}

// AddPlaylistTrack appends trackID to the end of a playlist.
func (db *DB) AddPlaylistTrack(ctx context.Context, playlistID, trackID int64) (*models.PlaylistTrack, error) {
	now := db.stamp()
	pt := &models.PlaylistTrack{
		PlaylistID: playlistID,
		TrackID:    trackID,
		CreatedAt:  models.NewTimestamp(now),
		UpdatedAt:  models.NewTimestamp(now),
	}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var live bool
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) > 0 FROM playlists WHERE id = ? AND deleted = FALSE`, playlistID).Scan(&live); err != nil {
			return err
		}
		if !live {
			return ErrPlaylistNotFound
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(max(sort_order) + 1, 0) FROM playlist_tracks WHERE playlist_id = ? AND deleted = FALSE`,
			playlistID).Scan(&pt.SortOrder); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, track_id, sort_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`,
			playlistID, trackID, pt.SortOrder, now, now).Scan(&pt.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add track %d to playlist %d: %w", trackID, playlistID, err)
	}
	return pt, nil
}

// DeletePlaylistTrack soft-deletes one playlist entry.
func (db *DB) DeletePlaylistTrack(ctx context.Context, playlistTrackID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE playlist_tracks SET deleted = TRUE, updated_at = ? WHERE id = ? AND deleted = FALSE`,
		db.stamp(), playlistTrackID)
	if err != nil {
		return fmt.Errorf("failed to delete playlist entry %d: %w", playlistTrackID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}

// CreateReviewSource inserts a review source subscribed to by userID.
func (db *DB) CreateReviewSource(ctx context.Context, userID int64, sourceType models.ReviewSourceType, displayName string) (*models.ReviewSource, error) {
	now := db.stamp()
	rs := &models.ReviewSource{
		SourceType:  sourceType,
		DisplayName: displayName,
		CreatedAt:   models.NewTimestamp(now),
		UpdatedAt:   models.NewTimestamp(now),
	}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO review_sources (source_type, display_name, created_at, updated_at)
			VALUES (?, ?, ?, ?) RETURNING id`,
			string(sourceType), displayName, now, now).Scan(&rs.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO review_source_users (review_source_id, user_id) VALUES (?, ?)`, rs.ID, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create review source: %w", err)
	}
	return rs, nil
}

// DeleteReviewSource soft-deletes a review source.
func (db *DB) DeleteReviewSource(ctx context.Context, reviewSourceID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE review_sources SET deleted = TRUE, updated_at = ? WHERE id = ? AND deleted = FALSE`,
		db.stamp(), reviewSourceID)
	if err != nil {
		return fmt.Errorf("failed to delete review source %d: %w", reviewSourceID, err)
	}
	return nil
}
