// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/eventprocessor"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/supervisor"
	"github.com/tomtom215/groovesync/internal/supervisor/services"
	ws "github.com/tomtom215/groovesync/internal/websocket"
)

// NATSComponents holds the broker and relay so main can close them after
// the supervisor tree stops.
type NATSComponents struct {
	server *eventprocessor.EmbeddedServer
	relay  *ws.NATSRelay
}

// InitNATS connects the hub to the cross-instance relay when NATS is
// enabled. With embedded mode it first starts an in-process broker and
// points the relay at it. Returns nil, nil when NATS is disabled.
func InitNATS(cfg *config.Config, hub *ws.Hub) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS relay disabled, sessions are local to this instance")
		return nil, nil
	}

	components := &NATSComponents{}
	relayCfg := eventprocessor.RelayConfigFrom(&cfg.NATS)

	if cfg.NATS.Embedded {
		serverCfg := eventprocessor.ServerConfigFrom(&cfg.NATS)
		server, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded NATS server: %w", err)
		}
		components.server = server
		relayCfg.URL = server.ClientURL()
		logging.Info().Str("url", relayCfg.URL).Msg("Embedded NATS server started")
	}

	instanceID := uuid.NewString()
	relay, err := ws.NewNATSRelay(hub, relayCfg, instanceID)
	if err != nil {
		components.shutdownServer()
		return nil, fmt.Errorf("failed to connect NATS relay: %w", err)
	}
	components.relay = relay
	hub.SetRelay(relay)

	logging.Info().
		Str("instance_id", instanceID).
		Str("subject_prefix", relayCfg.SubjectPrefix).
		Msg("NATS relay attached to session hub")
	return components, nil
}

// AddNATSToSupervisor puts the broker watchdog in the broker layer and the
// relay consumer in the realtime layer. No-op for nil components.
func AddNATSToSupervisor(tree *supervisor.SupervisorTree, c *NATSComponents, shutdownTimeout time.Duration) error {
	if c == nil {
		return nil
	}
	if c.server != nil {
		if _, err := tree.Add(supervisor.LayerBroker, services.NewEmbeddedNATSService(c.server, shutdownTimeout)); err != nil {
			return err
		}
	}
	if _, err := tree.Add(supervisor.LayerRealtime, services.NewRelayService(c.relay)); err != nil {
		return err
	}
	logging.Info().Msg("NATS components added to supervisor tree")
	return nil
}

// Close releases the relay connections and stops the broker if the
// supervisor did not already.
func (c *NATSComponents) Close() {
	if c == nil {
		return
	}
	if c.relay != nil {
		if err := c.relay.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS relay")
		}
	}
	c.shutdownServer()
}

func (c *NATSComponents) shutdownServer() {
	if c.server == nil || !c.server.IsRunning() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Error shutting down embedded NATS server")
	}
}
