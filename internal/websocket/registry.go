// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"sort"
	"sync"

	"github.com/tomtom215/groovesync/internal/metrics"
)

// Registry is the set of live sessions. All methods are safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
	seq      uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionID]*Session)}
}

// Register adds s. Each session is registered once, at handshake.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.seq++
	s.seq = r.seq
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.WSSessions.Set(float64(n))
}

// Unregister removes the session and closes its send buffer. Only the
// first call for an id returns true; later calls are no-ops.
func (r *Registry) Unregister(id SessionID) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	metrics.WSSessions.Set(float64(n))
	s.close()
	return s, true
}

// Get returns the session with id, or nil.
func (r *Registry) Get(id SessionID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// SessionsForUser returns userID's live sessions in registration order.
func (r *Registry) SessionsForUser(userID int64) []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, 2)
	for _, s := range r.sessions {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()
	sortBySeq(out)
	return out
}

// All returns a copy of the session map.
func (r *Registry) All() map[SessionID]*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[SessionID]*Session, len(r.sessions))
	for id, s := range r.sessions {
		out[id] = s
	}
	return out
}

// Snapshot returns every live session in registration order, so that
// broadcasts visit recipients deterministically.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sortBySeq(out)
	return out
}

// FindByDevice returns the live session of ownerID's device with the given
// identifier. If the device has reconnected before its old session was
// reaped, the newest session wins.
func (r *Registry) FindByDevice(ownerID int64, device DeviceIdentifier) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *Session
	for _, s := range r.sessions {
		if s.userID != ownerID || DeviceIdentifier(s.device.DeviceID) != device {
			continue
		}
		if found == nil || s.seq > found.seq {
			found = s
		}
	}
	return found
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func sortBySeq(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].seq < sessions[j].seq })
}
