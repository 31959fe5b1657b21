// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
database_schema.go - Database Schema

Every syncable table carries the same three bookkeeping columns:

  - created_at: set once on insert
  - updated_at: bumped on every write, including soft deletes
  - deleted:    soft-delete flag; rows are never physically removed so that
                the change feed can report them as removals

Visibility tables (playlist_users, review_source_users) scope the feed to
one user. users is visible to everyone.

Secondary indexes are only created on columns that are never updated.
DuckDB relies on zonemaps for the updated_at range scans.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, q := range schemaQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w\n%s", err, q)
		}
	}
	return nil
}

var schemaQueries = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_users START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_tracks START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_playlists START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_playlist_tracks START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_review_sources START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_devices START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_track_listens START 1`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
		name VARCHAR NOT NULL,
		last_login TIMESTAMP,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_tracks'),
		user_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		artist VARCHAR NOT NULL DEFAULT '',
		featuring VARCHAR NOT NULL DEFAULT '',
		album VARCHAR NOT NULL DEFAULT '',
		track_number INTEGER,
		length INTEGER NOT NULL DEFAULT 0,
		release_year INTEGER,
		genre VARCHAR NOT NULL DEFAULT '',
		play_count INTEGER NOT NULL DEFAULT 0,
		private BOOLEAN NOT NULL DEFAULT FALSE,
		hidden BOOLEAN NOT NULL DEFAULT FALSE,
		in_review BOOLEAN NOT NULL DEFAULT FALSE,
		note VARCHAR NOT NULL DEFAULT '',
		last_played TIMESTAMP,
		added_to_library TIMESTAMP,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracks_user ON tracks(user_id)`,

	`CREATE TABLE IF NOT EXISTS playlists (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_playlists'),
		name VARCHAR NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS playlist_users (
		playlist_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		ownership VARCHAR NOT NULL DEFAULT 'OWNER',
		PRIMARY KEY (playlist_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS playlist_tracks (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_playlist_tracks'),
		playlist_id BIGINT NOT NULL,
		track_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id)`,

	`CREATE TABLE IF NOT EXISTS review_sources (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_review_sources'),
		source_type VARCHAR NOT NULL,
		display_name VARCHAR NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS review_source_users (
		review_source_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		PRIMARY KEY (review_source_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS devices (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_devices'),
		user_id BIGINT NOT NULL,
		device_id VARCHAR NOT NULL,
		device_name VARCHAR NOT NULL,
		device_type VARCHAR NOT NULL,
		party_enabled_until TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, device_id)
	)`,

	// No key: membership is replaced wholesale inside one transaction and
	// DuckDB rejects delete-then-reinsert of the same key in a transaction.
	`CREATE TABLE IF NOT EXISTS device_party_users (
		device_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS track_listens (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_track_listens'),
		track_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		listened_at TIMESTAMP NOT NULL,
		iana_timezone VARCHAR NOT NULL,
		latitude DOUBLE,
		longitude DOUBLE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_track_listens_track ON track_listens(track_id)`,
}
