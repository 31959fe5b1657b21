// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/groovesync/internal/models"
)

// Health reports database reachability and the live session count. A
// failed ping degrades the status but still answers 200 so load balancers
// keep routing socket traffic.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbOK := h.store != nil && h.store.Ping(ctx) == nil
	sessions := 0
	if h.hub != nil {
		sessions = h.hub.SessionCount()
	}

	status := "healthy"
	if !dbOK {
		status = "degraded"
	}

	respondSuccess(w, r, http.StatusOK, models.HealthStatus{
		Status:         status,
		Version:        h.version,
		DatabaseOK:     dbOK,
		ActiveSessions: sessions,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
	})
}
