// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

// RemotePlayAction is the closed set of commands a controller can send.
type RemotePlayAction string

const (
	RemotePlaySetSongs       RemotePlayAction = "PLAY_SET_SONGS"
	RemotePlayNext           RemotePlayAction = "PLAY_NEXT"
	RemotePlayPrevious       RemotePlayAction = "PLAY_PREVIOUS"
	RemotePlayAddSongsNext   RemotePlayAction = "ADD_SONGS_NEXT"
	RemotePlayAddSongsLast   RemotePlayAction = "ADD_SONGS_LAST"
	RemotePlayPause          RemotePlayAction = "PAUSE"
	RemotePlayPlay           RemotePlayAction = "PLAY"
	RemotePlaySeek           RemotePlayAction = "SEEK"
	RemotePlayShuffleEnable  RemotePlayAction = "SHUFFLE_ENABLE"
	RemotePlayShuffleDisable RemotePlayAction = "SHUFFLE_DISABLE"
	RemotePlayRepeatEnable   RemotePlayAction = "REPEAT_ENABLE"
	RemotePlayRepeatDisable  RemotePlayAction = "REPEAT_DISABLE"
	RemotePlaySetVolume      RemotePlayAction = "SET_VOLUME"
	RemotePlayMute           RemotePlayAction = "MUTE"
	RemotePlayUnmute         RemotePlayAction = "UNMUTE"
)

// AllRemotePlayActions lists every action in declaration order.
var AllRemotePlayActions = []RemotePlayAction{
	RemotePlaySetSongs, RemotePlayNext, RemotePlayPrevious, RemotePlayAddSongsNext,
	RemotePlayAddSongsLast, RemotePlayPause, RemotePlayPlay, RemotePlaySeek,
	RemotePlayShuffleEnable, RemotePlayShuffleDisable, RemotePlayRepeatEnable,
	RemotePlayRepeatDisable, RemotePlaySetVolume, RemotePlayMute, RemotePlayUnmute,
}

// Valid reports whether a is a known action.
func (a RemotePlayAction) Valid() bool {
	for _, known := range AllRemotePlayActions {
		if a == known {
			return true
		}
	}
	return false
}

// RemotePlayRequest is sent by the controlling device. DeviceID is the
// controller's own stable identifier; TargetDeviceID is the row id of the
// device to control.
type RemotePlayRequest struct {
	MessageType      MessageType      `json:"messageType"`
	DeviceID         string           `json:"deviceId"`
	TargetDeviceID   int64            `json:"targetDeviceId" validate:"required,gt=0"`
	TrackIDs         []int64          `json:"trackIds" validate:"omitempty,max=1000,dive,gt=0"`
	NewFloatValue    *float64         `json:"newFloatValue"`
	RemotePlayAction RemotePlayAction `json:"remotePlayAction" validate:"required,remoteplayaction"`
}

// RemotePlayResponse is forwarded to the single target session. Tracks keeps
// the order and repeats of the request.
type RemotePlayResponse struct {
	MessageType      MessageType      `json:"messageType"`
	Tracks           []Track          `json:"tracks"`
	NewFloatValue    *float64         `json:"newFloatValue"`
	RemotePlayAction RemotePlayAction `json:"remotePlayAction"`
}
