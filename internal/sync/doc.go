// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package sync is the headless sync client: it mirrors a user's library from
the server into a local badger store and reports plays back.

Components:
  - APIClient / CircuitBreakerClient: REST access to the change feed and
    the mark-listened endpoint, behind a gobreaker circuit breaker
  - Store: badger-backed local state (entity mirror, sync cursors, the
    overall lastSync marker, the offline flag, the failed-listen queue)
  - Orchestrator: one sync run across entity types
  - ListenReporter: mark-listened with bounded retries and durable queuing
  - Scheduler: periodic runs as a suture service

Run life cycle:

	IDLE → CHECKING → FETCHING (entity types concurrently) → COMMITTING → IDLE

A run captures its upper bound (maximum) once, before any request, so
every entity type sees the same snapshot boundary. Each page is applied
as it arrives. A type's cursor moves to maximum only when all of its
pages applied; failed types keep lastSynced but their lastSyncAttempted
still advances.

Applying a page is an idempotent upsert, so a crash between apply and
cursor commit only causes the same window to be fetched again.
*/
package sync
