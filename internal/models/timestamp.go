// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

import (
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a time.Time that travels on the wire as epoch milliseconds.
// The zero Timestamp encodes as 0 so that a never-synced cursor maps to the
// start of the epoch.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to millisecond precision, which is all the wire
// format can carry.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Millisecond)}
}

// TimestampFromMillis is the inverse of Millis.
func TimestampFromMillis(ms int64) Timestamp {
	if ms == 0 {
		return Timestamp{}
	}
	return Timestamp{Time: time.UnixMilli(ms).UTC()}
}

// Now returns the current time at millisecond precision.
func Now() Timestamp {
	return NewTimestamp(time.Now().UTC())
}

// Millis returns 0 for the zero Timestamp.
func (t Timestamp) Millis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Before reports whether t is strictly earlier than u, treating the zero
// Timestamp as the epoch.
func (t Timestamp) Before(u Timestamp) bool {
	return t.Millis() < u.Millis()
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, t.Millis(), 10), nil
}

// UnmarshalJSON implements json.Unmarshaler. JSON null leaves t unchanged.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp must be epoch milliseconds: %w", err)
	}
	*t = TimestampFromMillis(ms)
	return nil
}
