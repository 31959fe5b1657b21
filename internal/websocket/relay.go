// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/models"
)

// Relay forwards live messages to sessions held by other server instances.
type Relay interface {
	Enabled() bool
	PublishNowPlaying(ctx context.Context, state *models.NowListeningState) error
	PublishRemotePlay(ctx context.Context, ownerID int64, device DeviceIdentifier, payload []byte) error
}

type noopRelay struct{}

func (noopRelay) Enabled() bool { return false }

func (noopRelay) PublishNowPlaying(context.Context, *models.NowListeningState) error { return nil }

func (noopRelay) PublishRemotePlay(context.Context, int64, DeviceIdentifier, []byte) error {
	return nil
}

// relayedRemotePlay wraps a forwarded command with its addressing.
type relayedRemotePlay struct {
	OwnerID  int64           `json:"ownerId"`
	DeviceID string          `json:"deviceId"`
	Payload  json.RawMessage `json:"payload"`
}
