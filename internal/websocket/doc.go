// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package websocket holds the live side of the server: one Session per
connected device, the Registry of sessions, and the two message handlers
that run on top of it.

Message flow:

	client ──NOW_PLAYING──▶ NowListening.HandleMessage ──▶ every other web session
	client ──REMOTE_PLAY──▶ RemotePlay.HandleMessage  ──▶ exactly one target session

Every message in either direction is a JSON object with a messageType
discriminator. Failures are reported back to the sender as ERROR messages
carrying the request type and a code.

Sessions are keyed by a SessionID minted at handshake. A device that
reconnects gets a new SessionID but keeps its DeviceIdentifier, which is
what remote play addresses.

Sends never block: each session has a bounded outbound buffer, and a
message that does not fit is dropped for that recipient only.

When a Relay is configured (NATS, see NATSRelay) broadcasts and remote-play
forwards are also published for sessions held by other server instances.
*/
package websocket
