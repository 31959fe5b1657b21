// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

// Limits bounds each connection.
type Limits struct {
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
}

// DefaultLimits returns the production connection limits.
func DefaultLimits() Limits {
	return Limits{
		SendBuffer:     256,
		MaxMessageSize: 512 * 1024,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
	}
}

// LimitsFromConfig fills unset values from DefaultLimits.
func LimitsFromConfig(cfg *config.WebSocketConfig) Limits {
	l := DefaultLimits()
	if cfg == nil {
		return l
	}
	if cfg.SendBuffer > 0 {
		l.SendBuffer = cfg.SendBuffer
	}
	if cfg.MaxMessageSize > 0 {
		l.MaxMessageSize = cfg.MaxMessageSize
	}
	if cfg.PongWait > 0 {
		l.PongWait = cfg.PongWait
	}
	if cfg.WriteWait > 0 {
		l.WriteWait = cfg.WriteWait
	}
	return l
}

func (l Limits) pingPeriod() time.Duration {
	return (l.PongWait * 9) / 10
}

// Session is one authenticated socket connection from a registered device.
type Session struct {
	id     SessionID
	userID int64
	device models.Device
	conn   *websocket.Conn

	mu     sync.RWMutex
	send   chan []byte
	closed bool

	// seq orders sessions by registration; set by Registry.Register.
	seq uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session for device. conn may be nil for sessions
// that are only fed through Send (tests, relays).
func NewSession(conn *websocket.Conn, device *models.Device, sendBuffer int) *Session {
	if sendBuffer <= 0 {
		sendBuffer = DefaultLimits().SendBuffer
	}
	id := NewSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.ContextWithCorrelationID(ctx, string(id)[:8])
	return &Session{
		id:     id,
		userID: device.UserID,
		device: *device,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Session) ID() SessionID { return s.id }

// UserID is the owner of the session's device.
func (s *Session) UserID() int64 { return s.userID }

// Device returns the device snapshot taken at handshake.
func (s *Session) Device() models.Device { return s.device }

func (s *Session) DeviceIdentifier() DeviceIdentifier {
	return DeviceIdentifier(s.device.DeviceID)
}

func (s *Session) DeviceType() models.DeviceType { return s.device.DeviceType }

// Context is canceled when the session closes.
func (s *Session) Context() context.Context { return s.ctx }

// Outbound exposes the send buffer for readers other than the write pump.
func (s *Session) Outbound() <-chan []byte { return s.send }

// Send queues payload without blocking. It reports false when the session
// is closed or its buffer is full; the message is dropped in both cases.
func (s *Session) Send(payload []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.WSSendDropped.WithLabelValues("closed").Inc()
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		metrics.WSSendDropped.WithLabelValues("buffer_full").Inc()
		logging.Ctx(s.ctx).Warn().
			Str("session_id", string(s.id)).
			Msg("Session send buffer full, dropping message")
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
	s.cancel()
}

// readPump feeds inbound messages to the hub until the connection fails,
// then disconnects the session.
func (s *Session) readPump(h *Hub) {
	defer func() {
		h.disconnect(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(h.limits.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(h.limits.PongWait)); err != nil {
		logging.Ctx(s.ctx).Error().Err(err).Msg("failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.limits.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Ctx(s.ctx).Debug().Err(err).Msg("unexpected websocket close")
			}
			return
		}
		h.Dispatch(s.ctx, s, data)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings. It exits when the buffer is closed or a write fails.
func (s *Session) writePump(l Limits) {
	ticker := time.NewTicker(l.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(l.WriteWait)); err != nil {
				return
			}
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logging.Ctx(s.ctx).Debug().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(l.WriteWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
