// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package services

import (
	"context"
	"fmt"
)

// RelayRunner is satisfied by *websocket.NATSRelay.
type RelayRunner interface {
	Serve(ctx context.Context) error
}

// RelayService consumes relayed now-playing and remote-play messages from
// other server instances. A subscription error is returned so the
// supervisor restarts the consumer with backoff.
type RelayService struct {
	relay RelayRunner
	name  string
}

func NewRelayService(relay RelayRunner) *RelayService {
	return &RelayService{relay: relay, name: "nats-relay"}
}

// Serve implements suture.Service.
func (s *RelayService) Serve(ctx context.Context) error {
	if err := s.relay.Serve(ctx); err != nil {
		return fmt.Errorf("relay consumer stopped: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// Returning nil would make suture treat the relay as finished for good.
	return fmt.Errorf("relay consumer exited unexpectedly")
}

func (s *RelayService) String() string {
	return s.name
}
