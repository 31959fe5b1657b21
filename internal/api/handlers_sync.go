// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/groovesync/internal/auth"
	"github.com/tomtom215/groovesync/internal/models"
)

// LastModified returns the newest change time per entity type for the
// caller. Clients capture this before paging so every type is read up to
// the same upper bound.
func (h *Handler) LastModified(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	stamps, err := h.store.GetLastModified(r.Context(), userID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load last-modified timestamps", err)
		return
	}
	respondRaw(w, http.StatusOK, models.LastModifiedResponse{LastModifiedTimestamps: stamps})
}

// EntityChanges serves one page of the change feed for a single entity
// type inside the window (minimum, maximum].
func (h *Handler) EntityChanges(w http.ResponseWriter, r *http.Request) {
	window, apiErr := h.parseChangeWindow(r)
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	page, err := h.store.GetChanges(r.Context(), userID, window)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to load changes", err)
		return
	}
	respondRaw(w, http.StatusOK, page)
}

func (h *Handler) parseChangeWindow(r *http.Request) (models.ChangeWindow, *models.APIError) {
	var window models.ChangeWindow

	entityType, err := models.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		return window, &models.APIError{Code: ErrCodeUnknownEntity, Message: err.Error()}
	}
	minimum, err := parseMillis(chi.URLParam(r, "minimum"))
	if err != nil {
		return window, invalidParam("minimum", err)
	}
	maximum, err := parseMillis(chi.URLParam(r, "maximum"))
	if err != nil {
		return window, invalidParam("maximum", err)
	}
	if maximum.Before(minimum) {
		return window, &models.APIError{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("minimum %d is after maximum %d", minimum.Millis(), maximum.Millis()),
		}
	}

	size, err := queryInt(r, "size", h.feed.DefaultPageSize)
	if err != nil || size <= 0 {
		return window, invalidParam("size", fmt.Errorf("must be a positive integer"))
	}
	if size > h.feed.MaxPageSize {
		size = h.feed.MaxPageSize
	}
	page, err := queryInt(r, "page", 0)
	if err != nil || page < 0 {
		return window, invalidParam("page", fmt.Errorf("must be zero or a positive integer"))
	}
	if int64(page) > math.MaxInt64/int64(size) {
		return window, invalidParam("page", fmt.Errorf("out of range for page size %d", size))
	}
	afterID, err := queryInt64(r, "afterId")
	if err != nil || afterID < 0 {
		return window, invalidParam("afterId", fmt.Errorf("must be zero or a positive integer"))
	}

	return models.ChangeWindow{
		EntityType: entityType,
		Minimum:    minimum,
		Maximum:    maximum,
		Page:       page,
		PageSize:   size,
		AfterID:    afterID,
	}, nil
}

func parseMillis(s string) (models.Timestamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return models.Timestamp{}, fmt.Errorf("not an integer")
	}
	if ms < 0 {
		return models.Timestamp{}, fmt.Errorf("must not be negative")
	}
	return models.TimestampFromMillis(ms), nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func queryInt64(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func invalidParam(name string, err error) *models.APIError {
	return &models.APIError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("invalid %s: %v", name, err),
		Details: map[string]interface{}{"field": name},
	}
}
