// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package main is the entry point for the Groovesync server.

The server owns the music library in DuckDB, serves the incremental change
feed that devices sync from, records listens, and keeps one WebSocket
session per connected device for now-playing updates and remote play.

# Application Architecture

Components run under a Suture v4 supervisor tree:

	RootSupervisor ("groovesync-server")
	├── broker-layer
	│   └── Embedded NATS watchdog (optional, -tags nats)
	├── realtime-layer
	│   ├── Session hub
	│   └── NATS relay consumer (optional, -tags nats)
	└── api-layer
	    └── HTTP server (chi)

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Database: DuckDB
 4. Session hub with a TTL track cache in front of the database
 5. NATS relay (optional): embedded broker or external URL
 6. JWT authentication
 7. HTTP router and server

# Configuration

	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json
	DUCKDB_PATH=/data/groovesync.duckdb
	JWT_SECRET=<32+ chars>
	CORS_ORIGINS=https://app.example.com
	NATS_ENABLED=true
	NATS_EMBEDDED=true

# Build Tags

	go build ./cmd/server               # single instance
	go build -tags nats ./cmd/server    # cross-instance relay over NATS

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests, the hub closes every session with a going-away frame,
and the relay and broker shut down before the database is closed.
*/
package main
