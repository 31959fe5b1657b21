// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse aborts a run before any per-type work starts.
	ErrMalformedResponse = errors.New("malformed server response")

	// ErrForegroundContext is returned when a run is started from a
	// context marked as foreground.
	ErrForegroundContext = errors.New("sync must not run on a foreground context")

	// ErrStoreClosed is returned by Store methods after Close.
	ErrStoreClosed = errors.New("store closed")
)

// HTTPError is a non-2xx response from the server.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether err is a 4xx response other than 429.
// Client errors are not retried.
func IsClientError(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 &&
		httpErr.StatusCode != http.StatusTooManyRequests
}
