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

// CreateUser inserts an account and returns it with its id and stamps.
func (db *DB) CreateUser(ctx context.Context, name string) (*models.User, error) {
	now := db.stamp()
	u := &models.User{Name: name, CreatedAt: models.NewTimestamp(now), UpdatedAt: models.NewTimestamp(now)}
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id`,
		name, now, now).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// TouchLogin records a login, which also surfaces the user as modified in
// the change feed.
func (db *DB) TouchLogin(ctx context.Context, userID int64) error {
	now := db.stamp()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ? AND deleted = FALSE`,
		now, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetUser loads a live user by id.
func (db *DB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
		created   time.Time
		updated   time.Time
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, last_login, created_at, updated_at FROM users WHERE id = ? AND deleted = FALSE`,
		userID).Scan(&u.ID, &u.Name, &lastLogin, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	u.LastLogin = nullTimestamp(lastLogin)
	u.CreatedAt = models.NewTimestamp(created.UTC())
	u.UpdatedAt = models.NewTimestamp(updated.UTC())
	return &u, nil
}
