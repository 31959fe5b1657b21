// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
)

// Sentinel errors returned by the store.
var (
	ErrTrackNotFound     = errors.New("track not found")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrNotDeviceOwner    = errors.New("device belongs to another user")
	ErrUnknownEntityType = errors.New("unknown entity type")
)

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollbackQuietly is deferred after BeginTx; it is a no-op once the
// transaction has committed.
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback()
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "PRIMARY KEY or UNIQUE constraint violated")
}

// withTx runs fn in a transaction and commits when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
