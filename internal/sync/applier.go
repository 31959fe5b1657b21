// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/models"
)

// entityDecoders extract the id of a raw row and check that it has the
// shape of its entity type. A new entity type needs an entry here and a
// change-feed source on the server.
var entityDecoders = map[models.EntityType]func(json.RawMessage) (int64, error){
	models.EntityTrack:         decodeID[models.Track],
	models.EntityPlaylist:      decodeID[models.Playlist],
	models.EntityPlaylistTrack: decodeID[models.PlaylistTrack],
	models.EntityUser:          decodeID[models.User],
	models.EntityReviewSource:  decodeID[models.ReviewSource],
}

func decodeID[T models.Entity](raw json.RawMessage) (int64, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	id := v.EntityID()
	if id <= 0 {
		return 0, fmt.Errorf("missing id")
	}
	return id, nil
}

// typeApplier writes the pages of one entity type during one run. It
// remembers every id removed in the run so that a stale copy of the row on
// a later page cannot bring it back.
type typeApplier struct {
	store      *Store
	entityType models.EntityType
	decode     func(json.RawMessage) (int64, error)
	removed    map[int64]struct{}
}

func newTypeApplier(store *Store, t models.EntityType) (*typeApplier, error) {
	decode, ok := entityDecoders[t]
	if !ok {
		return nil, fmt.Errorf("no decoder for entity type %q", t)
	}
	return &typeApplier{
		store:      store,
		entityType: t,
		decode:     decode,
		removed:    make(map[int64]struct{}),
	}, nil
}

// apply writes one page and returns the ids it touched, plus the highest
// id the page carried, which the next page resumes after.
func (a *typeApplier) apply(page *models.EntityChangeResponse[json.RawMessage]) (upserted, removed []int64, lastID int64, err error) {
	for _, id := range page.Content.Removed {
		a.removed[id] = struct{}{}
		lastID = max(lastID, id)
	}

	rows := make(map[int64]json.RawMessage, len(page.Content.New)+len(page.Content.Modified))
	for _, group := range [][]json.RawMessage{page.Content.New, page.Content.Modified} {
		for _, raw := range group {
			id, err := a.decode(raw)
			if err != nil {
				return nil, nil, 0, fmt.Errorf("%w: bad %s row: %v", ErrMalformedResponse, a.entityType, err)
			}
			lastID = max(lastID, id)
			if _, gone := a.removed[id]; gone {
				continue
			}
			rows[id] = raw
			upserted = append(upserted, id)
		}
	}

	if err := a.store.ApplyPage(a.entityType, rows, page.Content.Removed); err != nil {
		return nil, nil, 0, fmt.Errorf("apply %s page: %w", a.entityType, err)
	}
	return upserted, page.Content.Removed, lastID, nil
}
