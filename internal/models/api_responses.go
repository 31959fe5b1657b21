// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

import (
	"time"
)

// APIResponse wraps the bodies of the device, listen and health endpoints
// and every error response.
//
// The sync endpoints (last-modified and the entity change feed) return their
// bodies unwrapped because clients decode them directly; their errors still
// use this envelope.
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "trackId is required"
//	  },
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata is attached to every enveloped response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Common error codes:
//   - VALIDATION_ERROR: malformed path, query or body
//   - UNKNOWN_ENTITY_TYPE: entity type outside the sync set
//   - TRACK_NOT_FOUND, DEVICE_NOT_FOUND: unknown or foreign id
//   - PERMISSION_DENIED: device owned by another user
//   - DATABASE_ERROR: query failure
//   - RATE_LIMITED: too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	DatabaseOK     bool   `json:"database_ok"`
	ActiveSessions int    `json:"active_sessions"`
	Uptime         string `json:"uptime"`
}
