// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// RelayMessage is one message received from another instance.
type RelayMessage struct {
	Subject    string
	Kind       string
	InstanceID string
	Payload    []byte
}

// HandlerFunc processes one relayed message.
type HandlerFunc func(ctx context.Context, msg RelayMessage) error

// Subscriber is a stub when NATS dependencies are not available.
type Subscriber struct{}

// NewSubscriber returns ErrNATSNotAvailable.
func NewSubscriber(_ RelayConfig, _ string, _ watermill.LoggerAdapter) (*Subscriber, error) {
	return nil, ErrNATSNotAvailable
}

// Run returns ErrNATSNotAvailable.
func (s *Subscriber) Run(_ context.Context, _ string, _ HandlerFunc) error {
	return ErrNATSNotAvailable
}

// Close is a no-op stub.
func (s *Subscriber) Close() error {
	return nil
}
