// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package main

import (
	"errors"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/eventbus"
	"github.com/tomtom215/groovesync/internal/logging"
	intsync "github.com/tomtom215/groovesync/internal/sync"
)

// agent is the wired client stack: store, breaker-wrapped API client,
// listen queue and orchestrator.
type agent struct {
	cfg     *config.ClientConfig
	store   *intsync.Store
	bus     *eventbus.Bus
	client  *intsync.CircuitBreakerClient
	listens *intsync.ListenReporter
	sync    *intsync.Orchestrator
}

func openAgent(cfg *config.ClientConfig) (*agent, error) {
	store, err := intsync.OpenStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	client := intsync.NewCircuitBreakerClient(intsync.NewAPIClient(cfg))
	bus := eventbus.New(logging.NewWatermillAdapter("eventbus"))
	listens := intsync.NewListenReporter(cfg, client, store)

	return &agent{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		client:  client,
		listens: listens,
		sync:    intsync.NewOrchestrator(cfg, client, store, bus, listens),
	}, nil
}

// Close waits for background listen flushes before closing the bus and
// the store.
func (a *agent) Close() error {
	a.sync.WaitBackground()
	return errors.Join(a.bus.Close(), a.store.Close())
}
