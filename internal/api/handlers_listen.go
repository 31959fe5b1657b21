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

// MarkListened records a completed listen. An unknown or foreign track is
// a 400 so the agent drops the report instead of retrying it.
func (h *Handler) MarkListened(w http.ResponseWriter, r *http.Request) {
	var req models.MarkListenedRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	err := h.store.MarkListened(r.Context(), userID, req)
	switch {
	case errors.Is(err, database.ErrTrackNotFound):
		respondError(w, r, http.StatusBadRequest, ErrCodeTrackNotFound, "Track not found", nil)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to record listen", err)
	default:
		respondSuccess(w, r, http.StatusOK, map[string]int64{"trackId": req.TrackID})
	}
}
