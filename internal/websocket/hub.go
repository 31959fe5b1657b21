// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

// Store is everything the live handlers read from the database.
type Store interface {
	TrackLookup
	RemotePlayStore
}

// Hub owns the session registry and routes inbound messages.
type Hub struct {
	registry     *Registry
	nowListening *NowListening
	remotePlay   *RemotePlay
	limits       Limits
	upgrader     websocket.Upgrader
}

// NewHub creates a hub with no relay.
func NewHub(store Store, limits Limits) *Hub {
	registry := NewRegistry()
	return &Hub{
		registry:     registry,
		nowListening: NewNowListening(registry, store),
		remotePlay:   NewRemotePlay(registry, store),
		limits:       limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// SetRelay attaches a relay. Call before serving connections.
func (h *Hub) SetRelay(r Relay) {
	if r == nil {
		r = noopRelay{}
	}
	h.nowListening.relay = r
	h.remotePlay.relay = r
}

// SetCheckOrigin overrides the upgrader's origin check.
func (h *Hub) SetCheckOrigin(fn func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// SetClock replaces the wall clock used for party windows and
// lastTimeUpdate. For tests.
func (h *Hub) SetClock(now func() time.Time) {
	h.nowListening.now = now
	h.remotePlay.now = now
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) NowListening() *NowListening { return h.nowListening }

func (h *Hub) RemotePlay() *RemotePlay { return h.remotePlay }

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int { return h.registry.Count() }

// ServeWS upgrades the request and runs a session for device until the
// connection closes. The caller has already authenticated the user and
// resolved the device.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, device *models.Device) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := NewSession(conn, device, h.limits.SendBuffer)
	h.Connect(s)

	logging.Ctx(s.ctx).Info().
		Str("session_id", string(s.id)).
		Int64("user_id", s.userID).
		Str("device_id", device.DeviceID).
		Str("device_type", string(device.DeviceType)).
		Msg("Session connected")

	go s.writePump(h.limits)
	go s.readPump(h)
}

// Connect registers s and replays current listening states to it.
func (h *Hub) Connect(s *Session) {
	h.registry.Register(s)
	h.nowListening.SendAllListensToSession(s)
}

// disconnect unregisters s. Only the first call does anything.
func (h *Hub) disconnect(s *Session) {
	if _, ok := h.registry.Unregister(s.id); !ok {
		return
	}
	h.nowListening.RemoveSession(context.Background(), s)
	logging.Ctx(s.ctx).Info().Str("session_id", string(s.id)).Msg("Session disconnected")
}

// Disconnect removes s from the hub and clears its listening state.
func (h *Hub) Disconnect(s *Session) {
	h.disconnect(s)
}

// Dispatch routes one inbound message. Failures are answered with an
// ERROR message to the sender only.
func (h *Hub) Dispatch(ctx context.Context, s *Session, data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.WSMessagesReceived.WithLabelValues("invalid").Inc()
		h.sendError(s, "", CodeInvalidRequest, "message is not valid JSON")
		return
	}

	switch env.MessageType {
	case models.MessageNowPlaying:
		metrics.WSMessagesReceived.WithLabelValues(string(env.MessageType)).Inc()
		if err := h.nowListening.HandleMessage(ctx, s, data); err != nil {
			h.sendError(s, env.MessageType, CodeInvalidRequest, err.Error())
		}

	case models.MessageRemotePlay:
		metrics.WSMessagesReceived.WithLabelValues(string(env.MessageType)).Inc()
		err := h.remotePlay.HandleMessage(ctx, s, data)
		if err == nil {
			return
		}
		var rpErr *RemotePlayError
		if errors.As(err, &rpErr) {
			h.sendError(s, env.MessageType, rpErr.Code, rpErr.Message)
			return
		}
		logging.Ctx(ctx).Error().Err(err).Msg("remote play failed")
		h.sendError(s, env.MessageType, "INTERNAL_ERROR", "remote play failed")

	default:
		metrics.WSMessagesReceived.WithLabelValues("unknown").Inc()
		h.sendError(s, env.MessageType, "UNKNOWN_MESSAGE_TYPE", "unsupported messageType")
	}
}

func (h *Hub) sendError(s *Session, requestType models.MessageType, code, message string) {
	payload, err := json.Marshal(models.ErrorMessage{
		MessageType: models.MessageError,
		RequestType: requestType,
		Error:       models.ErrorDetail{Code: code, Message: message},
	})
	if err != nil {
		return
	}
	if s.Send(payload) {
		metrics.WSMessagesSent.WithLabelValues(string(models.MessageError)).Inc()
	}
}

// RunWithContext blocks until ctx is done, then closes every session.
func (h *Hub) RunWithContext(ctx context.Context) error {
	logging.Info().Msg("WebSocket hub started")
	<-ctx.Done()

	sessions := h.registry.Snapshot()
	for _, s := range sessions {
		h.disconnect(s)
	}
	logging.Info().
		Int("sessions_closed", len(sessions)).
		Str("reason", shutdownReason(ctx.Err())).
		Msg("WebSocket hub stopped")
	return ctx.Err()
}

func shutdownReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "context canceled"
	case err == nil:
		return "unknown"
	default:
		return err.Error()
	}
}
