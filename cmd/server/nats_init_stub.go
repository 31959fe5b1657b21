// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

//go:build !nats

package main

import (
	"time"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/supervisor"
	ws "github.com/tomtom215/groovesync/internal/websocket"
)

// NATSComponents is a stub for non-NATS builds.
type NATSComponents struct{}

// InitNATS is a no-op stub for non-NATS builds.
func InitNATS(cfg *config.Config, _ *ws.Hub) (*NATSComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// AddNATSToSupervisor is a no-op stub for non-NATS builds.
func AddNATSToSupervisor(_ *supervisor.SupervisorTree, _ *NATSComponents, _ time.Duration) error {
	return nil
}

// Close is a no-op stub.
func (c *NATSComponents) Close() {}
