// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

// MessageType discriminates every WebSocket message in both directions.
type MessageType string

const (
	MessageNowPlaying MessageType = "NOW_PLAYING"
	MessageRemotePlay MessageType = "REMOTE_PLAY"
	MessageError      MessageType = "ERROR"
)

// Envelope is decoded first to route an inbound message.
type Envelope struct {
	MessageType MessageType `json:"messageType"`
}

// NowPlayingTrack is the trimmed track summary shown to other devices.
// Private tracks are reduced to IsPrivate alone.
type NowPlayingTrack struct {
	ID          *int64 `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	ReleaseYear *int   `json:"releaseYear,omitempty"`
	Length      *int   `json:"length,omitempty"`
	InReview    *bool  `json:"inReview,omitempty"`
	IsPrivate   bool   `json:"isPrivate"`
}

// NowPlayingTrackFor summarises t for broadcast.
func NowPlayingTrackFor(t *Track) *NowPlayingTrack {
	if t == nil {
		return nil
	}
	if t.Private {
		return &NowPlayingTrack{IsPrivate: true}
	}
	id, length, inReview := t.ID, t.Length, t.InReview
	return &NowPlayingTrack{
		ID:          &id,
		Name:        t.Name,
		Artist:      t.Artist,
		Album:       t.Album,
		ReleaseYear: t.ReleaseYear,
		Length:      &length,
		InReview:    &inReview,
	}
}

// NowListeningState is the merged player state of one live session.
// Optional fields are pointers so that "never reported" and "reported as
// null" both encode as null.
type NowListeningState struct {
	MessageType    MessageType      `json:"messageType"`
	DeviceID       int64            `json:"deviceId"`
	DeviceName     string           `json:"deviceName"`
	DeviceType     DeviceType       `json:"deviceType"`
	UserID         int64            `json:"userId"`
	TimePlayed     *float64         `json:"timePlayed"`
	TrackData      *NowPlayingTrack `json:"trackData"`
	IsShuffling    *bool            `json:"isShuffling"`
	IsRepeating    *bool            `json:"isRepeating"`
	IsPlaying      *bool            `json:"isPlaying"`
	Volume         *float64         `json:"volume"`
	Muted          *bool            `json:"muted"`
	LastTimeUpdate *int64           `json:"lastTimeUpdate"`
}

// ErrorMessage is returned to the session whose request failed.
type ErrorMessage struct {
	MessageType MessageType `json:"messageType"`
	RequestType MessageType `json:"requestType"`
	Error       ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a human readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
