// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import "github.com/google/uuid"

// SessionID identifies one socket connection.
type SessionID string

// NewSessionID returns a random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// DeviceIdentifier is the stable, client-chosen device id. It is unique per
// user and survives reconnects.
type DeviceIdentifier string
