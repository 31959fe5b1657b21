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
	"sort"
	"time"

	"github.com/tomtom215/groovesync/internal/models"
)

const deviceColumns = `id, user_id, device_id, device_name, device_type, party_enabled_until, created_at, updated_at`

func scanDevice(sc rowScanner) (*models.Device, error) {
	var (
		d          models.Device
		deviceType string
		partyUntil sql.NullTime
		created    time.Time
		updated    time.Time
	)
	if err := sc.Scan(&d.ID, &d.UserID, &d.DeviceID, &d.DeviceName, &deviceType, &partyUntil, &created, &updated); err != nil {
		return nil, err
	}
	d.DeviceType = models.DeviceType(deviceType)
	if partyUntil.Valid {
		until := partyUntil.Time.UTC()
		d.PartyEnabledUntil = &until
	}
	d.CreatedAt = models.NewTimestamp(created.UTC())
	d.UpdatedAt = models.NewTimestamp(updated.UTC())
	return &d, nil
}

func (db *DB) loadPartyUsers(ctx context.Context, d *models.Device) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM device_party_users WHERE device_id = ? ORDER BY user_id`, d.ID)
	if err != nil {
		return err
	}
	defer closeQuietly(rows)
	d.PartyUserIDs = d.PartyUserIDs[:0]
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		d.PartyUserIDs = append(d.PartyUserIDs, id)
	}
	return rows.Err()
}

// GetDeviceByID loads a device by its row id, including party members.
func (db *DB) GetDeviceByID(ctx context.Context, id int64) (*models.Device, error) {
	start := time.Now()
	d, err := scanDevice(db.conn.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err == nil {
		err = db.loadPartyUsers(ctx, d)
	}
	recordQuery("select", "devices", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load device %d: %w", id, err)
	}
	return d, nil
}

// GetDeviceByIdentifier loads the device userID registered under the
// client-chosen identifier.
func (db *DB) GetDeviceByIdentifier(ctx context.Context, userID int64, deviceID string) (*models.Device, error) {
	d, err := scanDevice(db.conn.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = ? AND device_id = ?`, userID, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err == nil {
		err = db.loadPartyUsers(ctx, d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device %q: %w", deviceID, err)
	}
	return d, nil
}

// ListDevices returns every device registered by userID, oldest first.
func (db *DB) ListDevices(ctx context.Context, userID int64) ([]*models.Device, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	var devices []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	err = rows.Err()
	closeQuietly(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	for _, d := range devices {
		if err := db.loadPartyUsers(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to load party members for device %d: %w", d.ID, err)
		}
	}
	return devices, nil
}

// UpsertDevice registers a device for userID or, when the identifier is
// already known, updates its name and type.
func (db *DB) UpsertDevice(ctx context.Context, userID int64, req models.DeviceUpsertRequest) (*models.Device, error) {
	deviceType, err := models.ParseDeviceType(req.DeviceType)
	if err != nil {
		return nil, err
	}
	now := db.stamp()

	var id int64
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM devices WHERE user_id = ? AND device_id = ?`, userID, req.DeviceID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return tx.QueryRowContext(ctx, `
				INSERT INTO devices (user_id, device_id, device_name, device_type, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
				userID, req.DeviceID, req.DeviceName, string(deviceType), now, now).Scan(&id)
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE devices SET device_name = ?, device_type = ?, updated_at = ? WHERE id = ?`,
			req.DeviceName, string(deviceType), now, id)
		return err
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return db.GetDeviceByIdentifier(ctx, userID, req.DeviceID)
		}
		return nil, fmt.Errorf("failed to upsert device %q: %w", req.DeviceID, err)
	}
	return db.GetDeviceByID(ctx, id)
}

// SetPartyMode opens a party window of req.DurationSeconds for the listed
// users, or closes it. Only the device owner may change it.
func (db *DB) SetPartyMode(ctx context.Context, ownerID int64, req models.PartyModeRequest) (*models.Device, error) {
	now := db.stamp()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM devices WHERE id = ?`, req.DeviceID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return err
		}
		if owner != ownerID {
			return ErrNotDeviceOwner
		}

		var until any
		if req.Enabled {
			until = now.Add(time.Duration(req.DurationSeconds) * time.Second)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE devices SET party_enabled_until = ?, updated_at = ? WHERE id = ?`,
			until, now, req.DeviceID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM device_party_users WHERE device_id = ?`, req.DeviceID); err != nil {
			return err
		}
		if !req.Enabled {
			return nil
		}
		for _, userID := range uniqueIDs(req.PartyUserIDs) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO device_party_users (device_id, user_id) VALUES (?, ?)`, req.DeviceID, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) || errors.Is(err, ErrNotDeviceOwner) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to set party mode on device %d: %w", req.DeviceID, err)
	}
	return db.GetDeviceByID(ctx, req.DeviceID)
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
