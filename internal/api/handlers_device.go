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
	"github.com/tomtom215/groovesync/internal/models"
)

// ListDevices returns the caller's registered devices.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.ListDevices(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to list devices", err)
		return
	}
	if devices == nil {
		devices = []*models.Device{}
	}
	respondSuccess(w, r, http.StatusOK, devices)
}

// UpsertDevice registers a device, or renames one already registered under
// the same identifier. Clients call this before opening a socket.
func (h *Handler) UpsertDevice(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceUpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	device, err := h.store.UpsertDevice(r.Context(), auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to register device", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, device)
}

// SetPartyMode opens or closes the window during which the listed users
// may remote-play on a device.
func (h *Handler) SetPartyMode(w http.ResponseWriter, r *http.Request) {
	var req models.PartyModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	device, err := h.store.SetPartyMode(r.Context(), auth.UserIDFromContext(r.Context()), req)
	switch {
	case errors.Is(err, database.ErrDeviceNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeDeviceNotFound, "Device not found", nil)
	case errors.Is(err, database.ErrNotDeviceOwner):
		respondError(w, r, http.StatusForbidden, ErrCodePermission, "Only the device owner can change party mode", nil)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to update party mode", err)
	default:
		respondSuccess(w, r, http.StatusOK, device)
	}
}
