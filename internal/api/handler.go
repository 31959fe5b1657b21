// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/models"
)

// Store is the persistence the handlers need. *database.DB satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	GetLastModified(ctx context.Context, userID int64) (map[models.EntityType]models.Timestamp, error)
	GetChanges(ctx context.Context, userID int64, w models.ChangeWindow) (*models.EntityChangeResponse[models.Entity], error)
	MarkListened(ctx context.Context, userID int64, req models.MarkListenedRequest) error
	ListDevices(ctx context.Context, userID int64) ([]*models.Device, error)
	UpsertDevice(ctx context.Context, userID int64, req models.DeviceUpsertRequest) (*models.Device, error)
	SetPartyMode(ctx context.Context, ownerID int64, req models.PartyModeRequest) (*models.Device, error)
	GetDeviceByIdentifier(ctx context.Context, userID int64, deviceID string) (*models.Device, error)
}

// SessionHub accepts upgraded socket connections. *websocket.Hub
// satisfies it.
type SessionHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, device *models.Device)
	SessionCount() int
}

// Handler holds the dependencies shared by every endpoint.
type Handler struct {
	store     Store
	hub       SessionHub
	feed      config.FeedConfig
	version   string
	startTime time.Time
}

// NewHandler creates the handler set. hub may be nil, in which case the
// socket endpoint answers 503.
func NewHandler(store Store, hub SessionHub, feed config.FeedConfig, version string) *Handler {
	if feed.DefaultPageSize <= 0 {
		feed.DefaultPageSize = 400
	}
	if feed.MaxPageSize <= 0 {
		feed.MaxPageSize = 1000
	}
	if feed.DefaultPageSize > feed.MaxPageSize {
		feed.DefaultPageSize = feed.MaxPageSize
	}
	return &Handler{
		store:     store,
		hub:       hub,
		feed:      feed,
		version:   version,
		startTime: time.Now(),
	}
}
