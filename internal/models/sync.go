// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

import (
	"fmt"
	"math"
)

// SyncCursor is the per (user, entity type) watermark kept by a client.
// LastSynced only moves after every page of a run applied cleanly;
// LastSyncAttempted moves on every attempt.
type SyncCursor struct {
	UserID            int64      `json:"userId"`
	EntityType        EntityType `json:"entityType"`
	LastSynced        Timestamp  `json:"lastSynced"`
	LastSyncAttempted Timestamp  `json:"lastSyncAttempted"`
}

// ChangeWindow describes one change-feed page request. It is never stored.
type ChangeWindow struct {
	EntityType EntityType
	Minimum    Timestamp
	Maximum    Timestamp
	Page       int
	PageSize   int
	// AfterID resumes the feed after the last id of the previous page
	// instead of skipping Page*PageSize rows. A row that leaves the window
	// between two pages then cannot shift later rows past the boundary.
	// Zero starts at the first row.
	AfterID int64
}

// Validate checks the window bounds and paging values.
func (w ChangeWindow) Validate() error {
	if !w.EntityType.Valid() {
		return fmt.Errorf("unknown entity type %q", w.EntityType)
	}
	if w.Maximum.Before(w.Minimum) {
		return fmt.Errorf("minimum %d is after maximum %d", w.Minimum.Millis(), w.Maximum.Millis())
	}
	if w.Page < 0 {
		return fmt.Errorf("page must not be negative, got %d", w.Page)
	}
	if w.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", w.PageSize)
	}
	if int64(w.Page) > math.MaxInt64/int64(w.PageSize) {
		return fmt.Errorf("page %d is out of range for page size %d", w.Page, w.PageSize)
	}
	if w.AfterID < 0 {
		return fmt.Errorf("afterId must not be negative, got %d", w.AfterID)
	}
	return nil
}

// ChangeContent holds one page of changes. Removed carries ids only.
type ChangeContent[T any] struct {
	New      []T     `json:"new"`
	Modified []T     `json:"modified"`
	Removed  []int64 `json:"removed"`
}

// Pageable describes where a page sits in the full result.
type Pageable struct {
	Offset        int64 `json:"offset"`
	PageSize      int   `json:"pageSize"`
	PageNumber    int   `json:"pageNumber"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
}

// HasNext reports whether another page follows this one.
func (p Pageable) HasNext() bool {
	return p.PageNumber+1 < p.TotalPages
}

// NewPageable derives the page count from the total row count.
func NewPageable(page, size int, total int64) Pageable {
	pages := 0
	if size > 0 {
		pages = int(total / int64(size))
		if total%int64(size) != 0 {
			pages++
		}
	}
	return Pageable{
		Offset:        int64(page) * int64(size),
		PageSize:      size,
		PageNumber:    page,
		TotalPages:    pages,
		TotalElements: total,
	}
}

// NewKeysetPageable describes a page read after a previous page's last id.
// remaining counts the window rows from this page on, so HasNext holds
// exactly when rows are left beyond this page.
func NewKeysetPageable(page, size int, remaining int64) Pageable {
	before := int64(page) * int64(size)
	total := before + remaining
	if total < before {
		total = math.MaxInt64
	}
	return NewPageable(page, size, total)
}

// EntityChangeResponse is the body of GET /sync/entity-type/{type}/minimum/{min}/maximum/{max}.
type EntityChangeResponse[T any] struct {
	Content  ChangeContent[T] `json:"content"`
	Pageable Pageable         `json:"pageable"`
}

// Len returns the number of rows carried by the page.
func (r *EntityChangeResponse[T]) Len() int {
	return len(r.Content.New) + len(r.Content.Modified) + len(r.Content.Removed)
}

// LastModifiedResponse is the body of GET /sync/last-modified.
type LastModifiedResponse struct {
	LastModifiedTimestamps map[EntityType]Timestamp `json:"lastModifiedTimestamps"`
}

// MarkListenedRequest records that a track was played to completion.
type MarkListenedRequest struct {
	TrackID        int64     `json:"trackId" validate:"required,gt=0"`
	TimeListenedAt Timestamp `json:"timeListenedAt"`
	IanaTimezone   string    `json:"ianaTimezone" validate:"required,max=64"`
	Latitude       *float64  `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64  `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}
