// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

// Package cache provides a small typed in-memory cache with per-entry
// expiry. The session hub uses it to avoid a database round trip for every
// now-playing update that names the same track.
package cache
