// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/groovesync/internal/auth"
	"github.com/tomtom215/groovesync/internal/database"
	"github.com/tomtom215/groovesync/internal/logging"
)

// WebSocket upgrades an authenticated request into a session. The device
// named by ?deviceId= must already be registered by the caller.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Session hub unavailable", nil)
		return
	}

	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "deviceId query parameter is required", nil)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	device, err := h.store.GetDeviceByIdentifier(r.Context(), userID, deviceID)
	if errors.Is(err, database.ErrDeviceNotFound) {
		logging.Ctx(r.Context()).Debug().
			Int64("user_id", userID).
			Str("device_id", sanitizeLogValue(deviceID)).
			Msg("Socket handshake for unregistered device")
		respondError(w, r, http.StatusBadRequest, ErrCodeDeviceNotFound, "Device is not registered", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load device", err)
		return
	}

	h.hub.ServeWS(w, r, device)
}
