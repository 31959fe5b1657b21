// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"time"

	"github.com/tomtom215/groovesync/internal/cache"
	"github.com/tomtom215/groovesync/internal/models"
)

// CachedStore serves GetTrack from a short-lived cache. Players send a
// NOW_PLAYING update every few seconds for the same track, so most lookups
// hit. Remote-play checks go straight to the underlying store because they
// depend on the caller's visibility.
type CachedStore struct {
	Store
	tracks *cache.TTL[int64, *models.Track]
}

// NewCachedStore wraps store. Track edits, including a switch to
// private, become visible in summaries after at most ttl.
func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:  store,
		tracks: cache.New[int64, *models.Track](ttl, ttl*4),
	}
}

// GetTrack implements TrackLookup. Misses, including not-found, are not
// cached.
func (c *CachedStore) GetTrack(ctx context.Context, trackID int64) (*models.Track, error) {
	if t, ok := c.tracks.Get(trackID); ok {
		return t, nil
	}
	t, err := c.Store.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	c.tracks.Set(trackID, t)
	return t, nil
}

// Close stops the cache janitor.
func (c *CachedStore) Close() {
	c.tracks.Close()
}
