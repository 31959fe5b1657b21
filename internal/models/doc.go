// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package models defines the data structures shared by the server, the sync
client and the socket relay.

Key Components:

  - Library entities: Track, Playlist, PlaylistTrack, User, ReviewSource
  - Sync types: EntityType, SyncCursor, ChangeWindow, EntityChangeResponse
  - Devices: Device, DeviceType and the party-mode permission check
  - Socket messages: NowListeningState, RemotePlayRequest, RemotePlayResponse
  - API envelope: APIResponse, APIError

Timestamps on the wire are epoch milliseconds (see Timestamp). Field names
follow the camelCase JSON used by the mobile and web clients.
*/
package models
