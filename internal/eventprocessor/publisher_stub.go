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

// Publisher is a stub when NATS dependencies are not available.
type Publisher struct{}

// NewPublisher returns ErrNATSNotAvailable.
func NewPublisher(_ RelayConfig, _ string, _ watermill.LoggerAdapter) (*Publisher, error) {
	return nil, ErrNATSNotAvailable
}

// Publish returns ErrNATSNotAvailable.
func (p *Publisher) Publish(_ context.Context, _, _ string, _ []byte) error {
	return ErrNATSNotAvailable
}

// Close is a no-op stub.
func (p *Publisher) Close() error {
	return nil
}
