// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
change_feed.go - Entity Change Feed

A row belongs to the window (minimum, maximum] when

	updated_at > minimum AND updated_at <= maximum
	AND (deleted = FALSE OR created_at <= minimum)

The last clause is tombstone suppression: a row created and deleted inside
the window never existed for the client, so it is not reported at all.
A row created exactly at minimum was part of the previous window (whose
upper bound is inclusive), so its deletion is reported.

Rows in the window are classified as

	deleted                -> removed (id only)
	created_at > minimum   -> new
	otherwise              -> modified

Pages are ordered by primary key. A window with AfterID set is read by
keyset (t.id > afterId) rather than by offset, and its count covers only the
rows from that id on. Rows leaving the window between two requests, because
they were updated or deleted past maximum, then cannot push an untouched row
across the page boundary. The count and the page are read in one
transaction so that totalPages and the page contents agree.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

const windowClause = `t.updated_at > ? AND t.updated_at <= ? AND (t.deleted = FALSE OR t.created_at <= ?)`

type feedRow struct {
	entity  models.Entity
	created models.Timestamp
	deleted bool
}

// feedSource is the per entity type part of the change-feed query. The
// table being synced is always aliased t. scope restricts rows to what the
// user can see; when userScoped is set it takes the user id as its only
// argument.
type feedSource struct {
	table      string
	from       string
	scope      string
	userScoped bool
	columns    string
	scan       func(sc rowScanner) (feedRow, error)
}

var feedSources = map[models.EntityType]feedSource{
	models.EntityTrack: {
		table:      "tracks",
		from:       "tracks t",
		scope:      "t.user_id = ?",
		userScoped: true,
		columns:    trackColumns + ", t.deleted",
		scan: func(sc rowScanner) (feedRow, error) {
			var deleted bool
			t, err := scanTrack(sc, &deleted)
			if err != nil {
				return feedRow{}, err
			}
			return feedRow{entity: *t, created: t.CreatedAt, deleted: deleted}, nil
		},
	},
	models.EntityPlaylist: {
		table:      "playlists",
		from:       "playlists t JOIN playlist_users pu ON pu.playlist_id = t.id",
		scope:      "pu.user_id = ?",
		userScoped: true,
		columns:    "t.id, t.name, t.created_at, t.updated_at, t.deleted",
		scan: func(sc rowScanner) (feedRow, error) {
			var (
				p                models.Playlist
				created, updated time.Time
				deleted          bool
			)
			if err := sc.Scan(&p.ID, &p.Name, &created, &updated, &deleted); err != nil {
				return feedRow{}, err
			}
			p.CreatedAt = models.NewTimestamp(created.UTC())
			p.UpdatedAt = models.NewTimestamp(updated.UTC())
			return feedRow{entity: p, created: p.CreatedAt, deleted: deleted}, nil
		},
	},
	models.EntityPlaylistTrack: {
		table:      "playlist_tracks",
		from:       "playlist_tracks t JOIN playlist_users pu ON pu.playlist_id = t.playlist_id",
		scope:      "pu.user_id = ?",
		userScoped: true,
		columns:    "t.id, t.playlist_id, t.track_id, t.sort_order, t.created_at, t.updated_at, t.deleted",
		scan: func(sc rowScanner) (feedRow, error) {
			var (
				pt               models.PlaylistTrack
				created, updated time.Time
				deleted          bool
			)
			if err := sc.Scan(&pt.ID, &pt.PlaylistID, &pt.TrackID, &pt.SortOrder, &created, &updated, &deleted); err != nil {
				return feedRow{}, err
			}
			pt.CreatedAt = models.NewTimestamp(created.UTC())
			pt.UpdatedAt = models.NewTimestamp(updated.UTC())
			return feedRow{entity: pt, created: pt.CreatedAt, deleted: deleted}, nil
		},
	},
	models.EntityUser: {
		table:   "users",
		from:    "users t",
		scope:   "TRUE",
		columns: "t.id, t.name, t.last_login, t.created_at, t.updated_at, t.deleted",
		scan: func(sc rowScanner) (feedRow, error) {
			var (
				u                models.User
				lastLogin        sql.NullTime
				created, updated time.Time
				deleted          bool
			)
			if err := sc.Scan(&u.ID, &u.Name, &lastLogin, &created, &updated, &deleted); err != nil {
				return feedRow{}, err
			}
			u.LastLogin = nullTimestamp(lastLogin)
			u.CreatedAt = models.NewTimestamp(created.UTC())
			u.UpdatedAt = models.NewTimestamp(updated.UTC())
			return feedRow{entity: u, created: u.CreatedAt, deleted: deleted}, nil
		},
	},
	models.EntityReviewSource: {
		table:      "review_sources",
		from:       "review_sources t JOIN review_source_users ru ON ru.review_source_id = t.id",
		scope:      "ru.user_id = ?",
		userScoped: true,
		columns:    "t.id, t.source_type, t.display_name, t.created_at, t.updated_at, t.deleted",
		scan: func(sc rowScanner) (feedRow, error) {
			var (
				rs               models.ReviewSource
				sourceType       string
				created, updated time.Time
				deleted          bool
			)
			if err := sc.Scan(&rs.ID, &sourceType, &rs.DisplayName, &created, &updated, &deleted); err != nil {
				return feedRow{}, err
			}
			rs.SourceType = models.ReviewSourceType(sourceType)
			rs.CreatedAt = models.NewTimestamp(created.UTC())
			rs.UpdatedAt = models.NewTimestamp(updated.UTC())
			return feedRow{entity: rs, created: rs.CreatedAt, deleted: deleted}, nil
		},
	},
}

func (s feedSource) scopeArgs(userID int64) []any {
	if s.userScoped {
		return []any{userID}
	}
	return nil
}

// GetChanges returns one page of the change feed for userID.
func (db *DB) GetChanges(ctx context.Context, userID int64, w models.ChangeWindow) (*models.EntityChangeResponse[models.Entity], error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	src, ok := feedSources[w.EntityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, w.EntityType)
	}

	minimum := windowTime(w.Minimum)
	maximum := windowTime(w.Maximum)
	args := append(src.scopeArgs(userID), minimum, maximum, minimum)
	where := src.scope + " AND " + windowClause
	if w.AfterID > 0 {
		where += " AND t.id > ?"
		args = append(args, w.AfterID)
	}

	resp := &models.EntityChangeResponse[models.Entity]{
		Content: models.ChangeContent[models.Entity]{
			New:      []models.Entity{},
			Modified: []models.Entity{},
			Removed:  []int64{},
		},
	}

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var total int64
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM `+src.from+` WHERE `+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		var offset int64
		if w.AfterID > 0 {
			resp.Pageable = models.NewKeysetPageable(w.Page, w.PageSize, total)
		} else {
			resp.Pageable = models.NewPageable(w.Page, w.PageSize, total)
			offset = resp.Pageable.Offset
		}
		if offset >= total {
			return nil
		}

		pageArgs := append(append([]any{}, args...), w.PageSize, offset)
		rows, err := tx.QueryContext(ctx,
			`SELECT `+src.columns+` FROM `+src.from+` WHERE `+where+` ORDER BY t.id LIMIT ? OFFSET ?`,
			pageArgs...)
		if err != nil {
			return fmt.Errorf("page: %w", err)
		}
		defer closeQuietly(rows)

		for rows.Next() {
			row, err := src.scan(rows)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			switch {
			case row.deleted:
				resp.Content.Removed = append(resp.Content.Removed, row.entity.EntityID())
			case w.Minimum.Before(row.created):
				resp.Content.New = append(resp.Content.New, row.entity)
			default:
				resp.Content.Modified = append(resp.Content.Modified, row.entity)
			}
		}
		return rows.Err()
	})
	recordQuery("feed", src.table, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s changes: %w", w.EntityType, err)
	}

	metrics.RecordFeedPage(string(w.EntityType), len(resp.Content.New), len(resp.Content.Modified), len(resp.Content.Removed))
	return resp, nil
}

// GetLastModified returns, for every entity type, the newest updated_at
// visible to userID. Types with no visible rows map to the zero Timestamp.
func (db *DB) GetLastModified(ctx context.Context, userID int64) (map[models.EntityType]models.Timestamp, error) {
	out := make(map[models.EntityType]models.Timestamp, len(models.AllEntityTypes))
	for _, entityType := range models.AllEntityTypes {
		src := feedSources[entityType]
		var last sql.NullTime
		start := time.Now()
		err := db.conn.QueryRowContext(ctx,
			`SELECT max(t.updated_at) FROM `+src.from+` WHERE `+src.scope, src.scopeArgs(userID)...).Scan(&last)
		recordQuery("last_modified", src.table, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to read last modified for %s: %w", entityType, err)
		}
		if last.Valid {
			out[entityType] = models.NewTimestamp(last.Time.UTC())
		} else {
			out[entityType] = models.Timestamp{}
		}
	}
	return out, nil
}
