// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package eventprocessor connects server instances over NATS so that socket
traffic reaches sessions held by another replica.

The relay uses core NATS publish/subscribe through Watermill: JetStream is
disabled and subscribers join no queue group, so every instance receives
every message. Messages are transient; an instance that is down simply
misses them, which matches the online-only nature of now-playing and
remote-play.

Components:

  - Publisher: Watermill NATS publisher behind a circuit breaker
  - Subscriber: Watermill NATS subscriber with a per-subject handler loop
  - EmbeddedServer: in-process nats-server for single-host deployments

The NATS implementations are only compiled with the nats build tag:

	go build -tags nats ./...

Without the tag the constructors return ErrNATSNotAvailable.
*/
package eventprocessor
