// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package api serves the groovesync REST API and the session socket handshake.

# Endpoints

All /api/v1 routes except health require a bearer token (the socket
handshake may pass it as ?token= instead).

	GET  /api/v1/health
	GET  /api/v1/sync/last-modified
	GET  /api/v1/sync/entity-type/{type}/minimum/{min}/maximum/{max}?size=&page=&afterId=
	POST /api/v1/track/mark-listened
	GET  /api/v1/device
	PUT  /api/v1/device
	POST /api/v1/device/party
	GET  /api/v1/ws?deviceId=
	GET  /metrics

The two sync endpoints return their bodies unwrapped because the sync
client decodes them directly. Everything else, and every error, uses the
models.APIResponse envelope.

# Middleware

Requests pass through request-id tagging, panic recovery, CORS, per-IP
rate limiting (httprate), Prometheus instrumentation and access logging
before authentication. Responses other than the socket upgrade are
compressed.
*/
package api
