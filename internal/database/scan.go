// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package database

import (
	"database/sql"
	"time"

	"github.com/tomtom215/groovesync/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullTimestamp(t sql.NullTime) *models.Timestamp {
	if !t.Valid {
		return nil
	}
	ts := models.NewTimestamp(t.Time.UTC())
	return &ts
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func timestampArg(ts *models.Timestamp) any {
	if ts == nil || ts.IsZero() {
		return nil
	}
	return ts.UTC()
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// windowTime maps a wire timestamp onto a query bound. The zero Timestamp
// becomes the Unix epoch rather than year one.
func windowTime(ts models.Timestamp) time.Time {
	return time.UnixMilli(ts.Millis()).UTC()
}
