// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/database"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

// TrackLookup loads a live track by id regardless of owner.
type TrackLookup interface {
	GetTrack(ctx context.Context, trackID int64) (*models.Track, error)
}

// NowListening keeps the merged player state of every local session and
// fans it out to the sessions that display it.
type NowListening struct {
	registry *Registry
	tracks   TrackLookup
	relay    Relay
	now      func() time.Time

	mu     sync.Mutex
	states map[SessionID]*models.NowListeningState
}

// NewNowListening creates a broadcaster over registry.
func NewNowListening(registry *Registry, tracks TrackLookup) *NowListening {
	return &NowListening{
		registry: registry,
		tracks:   tracks,
		relay:    noopRelay{},
		now:      time.Now,
		states:   make(map[SessionID]*models.NowListeningState),
	}
}

// playerFields are the inbound fields merged into a session's state.
// Anything else in the message is ignored.
var playerFields = []string{"timePlayed", "trackId", "isShuffling", "isRepeating", "isPlaying", "volume", "muted"}

// HandleMessage merges a partial player update from s into its state and
// broadcasts the result to every other capable session.
//
// A field missing from raw keeps its previous value. A field that is
// present overwrites, including an explicit null.
func (n *NowListening) HandleMessage(ctx context.Context, s *Session, raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("invalid now playing message: %w", err)
	}

	patch, err := n.decodePatch(ctx, fields)
	if err != nil {
		return err
	}

	n.mu.Lock()
	// Disconnect unregisters before it clears state, so a message read
	// after that point must not store a state nobody will remove.
	if n.registry.Get(s.id) == nil {
		n.mu.Unlock()
		return nil
	}
	prev, ok := n.states[s.id]
	var state models.NowListeningState
	if ok {
		state = *prev
	}
	patch.apply(&state)
	device := s.Device()
	state.MessageType = models.MessageNowPlaying
	state.DeviceID = device.ID
	state.DeviceName = device.DeviceName
	state.DeviceType = device.DeviceType
	state.UserID = s.userID
	if patch.hasTimePlayed {
		ms := n.now().UnixMilli()
		state.LastTimeUpdate = &ms
	}
	stored := state
	n.states[s.id] = &stored
	count := len(n.states)
	n.mu.Unlock()

	metrics.NowListeningStates.Set(float64(count))
	n.broadcast(ctx, &state, s.id)
	n.publish(ctx, &state)
	return nil
}

// playerPatch is the decoded set of fields present in one message.
type playerPatch struct {
	hasTimePlayed, hasTrack, hasShuffling, hasRepeating, hasPlaying, hasVolume, hasMuted bool

	timePlayed  *float64
	track       *models.NowPlayingTrack
	isShuffling *bool
	isRepeating *bool
	isPlaying   *bool
	volume      *float64
	muted       *bool
}

func (p *playerPatch) apply(state *models.NowListeningState) {
	if p.hasTimePlayed {
		state.TimePlayed = p.timePlayed
	}
	if p.hasTrack {
		state.TrackData = p.track
	}
	if p.hasShuffling {
		state.IsShuffling = p.isShuffling
	}
	if p.hasRepeating {
		state.IsRepeating = p.isRepeating
	}
	if p.hasPlaying {
		state.IsPlaying = p.isPlaying
	}
	if p.hasVolume {
		state.Volume = p.volume
	}
	if p.hasMuted {
		state.Muted = p.muted
	}
}

func (n *NowListening) decodePatch(ctx context.Context, fields map[string]json.RawMessage) (*playerPatch, error) {
	p := &playerPatch{}
	var err error
	for _, name := range playerFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		switch name {
		case "timePlayed":
			p.hasTimePlayed = true
			p.timePlayed, err = decodeOptional[float64](raw)
		case "trackId":
			p.hasTrack = true
			var id *int64
			if id, err = decodeOptional[int64](raw); err == nil && id != nil {
				p.track, err = n.resolveTrack(ctx, *id)
			}
		case "isShuffling":
			p.hasShuffling = true
			p.isShuffling, err = decodeOptional[bool](raw)
		case "isRepeating":
			p.hasRepeating = true
			p.isRepeating, err = decodeOptional[bool](raw)
		case "isPlaying":
			p.hasPlaying = true
			p.isPlaying, err = decodeOptional[bool](raw)
		case "volume":
			p.hasVolume = true
			p.volume, err = decodeOptional[float64](raw)
		case "muted":
			p.hasMuted = true
			p.muted, err = decodeOptional[bool](raw)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return p, nil
}

// resolveTrack turns a track id into its broadcast summary. An unknown or
// deleted track clears the summary rather than failing the update.
func (n *NowListening) resolveTrack(ctx context.Context, id int64) (*models.NowPlayingTrack, error) {
	track, err := n.tracks.GetTrack(ctx, id)
	if errors.Is(err, database.ErrTrackNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load track: %w", err)
	}
	return models.NowPlayingTrackFor(track), nil
}

var jsonNull = []byte("null")

func decodeOptional[T any](raw json.RawMessage) (*T, error) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SendAllListensToSession replays every other session's current state to s.
// Sessions on devices that do not display now-listening get nothing.
func (n *NowListening) SendAllListensToSession(s *Session) {
	if !s.DeviceType().ReceivesNowListening() {
		return
	}

	n.mu.Lock()
	states := make([]models.NowListeningState, 0, len(n.states))
	for id, st := range n.states {
		if id != s.id {
			states = append(states, *st)
		}
	}
	n.mu.Unlock()

	sort.Slice(states, func(i, j int) bool { return states[i].DeviceID < states[j].DeviceID })
	for i := range states {
		payload, err := json.Marshal(&states[i])
		if err != nil {
			logging.Error().Err(err).Msg("failed to marshal now listening state")
			continue
		}
		if s.Send(payload) {
			metrics.WSMessagesSent.WithLabelValues(string(models.MessageNowPlaying)).Inc()
		}
	}
}

// RemoveSession drops s's state. If s was playing a track, peers receive
// one last state with the track cleared.
func (n *NowListening) RemoveSession(ctx context.Context, s *Session) {
	n.mu.Lock()
	state, ok := n.states[s.id]
	delete(n.states, s.id)
	count := len(n.states)
	n.mu.Unlock()

	metrics.NowListeningStates.Set(float64(count))
	if !ok || state.TrackData == nil {
		return
	}
	cleared := *state
	cleared.TrackData = nil
	n.broadcast(ctx, &cleared, s.id)
	n.publish(ctx, &cleared)
}

// State returns a copy of the session's current state.
func (n *NowListening) State(id SessionID) (models.NowListeningState, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.states[id]
	if !ok {
		return models.NowListeningState{}, false
	}
	return *st, true
}

// broadcast sends state to every capable session except the origin. Send
// failures are counted and skipped.
func (n *NowListening) broadcast(ctx context.Context, state *models.NowListeningState, origin SessionID) {
	payload, err := json.Marshal(state)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to marshal now listening state")
		return
	}
	n.deliver(payload, origin)
}

func (n *NowListening) deliver(payload []byte, origin SessionID) {
	for _, peer := range n.registry.Snapshot() {
		if peer.id == origin || !peer.DeviceType().ReceivesNowListening() {
			continue
		}
		if peer.Send(payload) {
			metrics.WSMessagesSent.WithLabelValues(string(models.MessageNowPlaying)).Inc()
		}
	}
}

func (n *NowListening) publish(ctx context.Context, state *models.NowListeningState) {
	if !n.relay.Enabled() {
		return
	}
	if err := n.relay.PublishNowPlaying(ctx, state); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to relay now listening state")
	}
}

// DeliverRelayed fans a state published by another instance out to local
// sessions. Relayed states are not stored.
func (n *NowListening) DeliverRelayed(payload []byte) {
	n.deliver(payload, "")
}
