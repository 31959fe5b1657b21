// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

import "fmt"

// EntityType names one syncable table. The set is closed: adding a value
// requires a change-feed query in the database package and an applier in the
// client sync package.
type EntityType string

const (
	EntityTrack         EntityType = "track"
	EntityPlaylist      EntityType = "playlist"
	EntityPlaylistTrack EntityType = "playlistTrack"
	EntityUser          EntityType = "user"
	EntityReviewSource  EntityType = "reviewSource"
)

// AllEntityTypes lists every syncable type in a stable order.
var AllEntityTypes = []EntityType{
	EntityTrack,
	EntityPlaylist,
	EntityPlaylistTrack,
	EntityUser,
	EntityReviewSource,
}

// Valid reports whether t is one of AllEntityTypes.
func (t EntityType) Valid() bool {
	for _, known := range AllEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType validates a raw path or flag value.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Entity is implemented by every syncable row so that the client store can
// key it without knowing the concrete type.
type Entity interface {
	EntityID() int64
}

// Track is a song in a user's library.
type Track struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"userId"`
	Name           string     `json:"name"`
	Artist         string     `json:"artist"`
	Featuring      string     `json:"featuring"`
	Album          string     `json:"album"`
	TrackNumber    *int       `json:"trackNumber"`
	Length         int        `json:"length"`
	ReleaseYear    *int       `json:"releaseYear"`
	Genre          string     `json:"genre"`
	PlayCount      int        `json:"playCount"`
	Private        bool       `json:"private"`
	Hidden         bool       `json:"hidden"`
	InReview       bool       `json:"inReview"`
	Note           string     `json:"note"`
	LastPlayed     *Timestamp `json:"lastPlayed"`
	AddedToLibrary *Timestamp `json:"addedToLibrary"`
	CreatedAt      Timestamp  `json:"createdAt"`
	UpdatedAt      Timestamp  `json:"updatedAt"`
}

func (t Track) EntityID() int64 { return t.ID }

// Playlist is a named, shareable list of tracks.
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

func (p Playlist) EntityID() int64 { return p.ID }

// PlaylistTrack places a track in a playlist.
type PlaylistTrack struct {
	ID         int64     `json:"id"`
	PlaylistID int64     `json:"playlistId"`
	TrackID    int64     `json:"trackId"`
	SortOrder  int       `json:"sortOrder"`
	CreatedAt  Timestamp `json:"createdAt"`
	UpdatedAt  Timestamp `json:"updatedAt"`
}

func (p PlaylistTrack) EntityID() int64 { return p.ID }

// User is the public projection of an account. Every user is visible to
// every other user.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	LastLogin *Timestamp `json:"lastLogin"`
	CreatedAt Timestamp  `json:"createdAt"`
	UpdatedAt Timestamp  `json:"updatedAt"`
}

func (u User) EntityID() int64 { return u.ID }

// ReviewSourceType identifies where review-queue recommendations come from.
type ReviewSourceType string

const (
	ReviewSourceUserRecommend ReviewSourceType = "USER_RECOMMEND"
	ReviewSourceYouTube       ReviewSourceType = "YOUTUBE_CHANNEL"
	ReviewSourceArtist        ReviewSourceType = "ARTIST"
)

// ReviewSource feeds a user's review queue.
type ReviewSource struct {
	ID          int64            `json:"id"`
	SourceType  ReviewSourceType `json:"sourceType"`
	DisplayName string           `json:"displayName"`
	CreatedAt   Timestamp        `json:"createdAt"`
	UpdatedAt   Timestamp        `json:"updatedAt"`
}

func (r ReviewSource) EntityID() int64 { return r.ID }
