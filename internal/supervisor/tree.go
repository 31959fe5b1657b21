// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer identifies one child supervisor of the tree.
type Layer int

const (
	// LayerBroker holds the embedded NATS server.
	LayerBroker Layer = iota
	// LayerRealtime holds the session hub and the cross-instance relay.
	LayerRealtime
	// LayerAPI holds the HTTP server.
	LayerAPI
	// LayerSync holds the client-side sync scheduler.
	LayerSync
)

var layerNames = map[Layer]string{
	LayerBroker:   "broker-layer",
	LayerRealtime: "realtime-layer",
	LayerAPI:      "api-layer",
	LayerSync:     "sync-layer",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layer(%d)", int(l))
}

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the suture defaults used in production.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// SupervisorTree is a root supervisor with one child supervisor per layer.
// A crash loop inside one layer backs off that layer only.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
	logger *slog.Logger
	config TreeConfig
}

// NewSupervisorTree builds a tree named name with the given layers. The
// server process uses broker, realtime and api; the agent uses sync.
func NewSupervisorTree(name string, logger *slog.Logger, config TreeConfig, layers ...Layer) (*SupervisorTree, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("supervisor tree %q needs at least one layer", name)
	}
	config = config.withDefaults()

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	root := suture.New(name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	})

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	t := &SupervisorTree{
		root:   root,
		layers: make(map[Layer]*suture.Supervisor, len(layers)),
		logger: logger,
		config: config,
	}
	for _, l := range layers {
		if _, dup := t.layers[l]; dup {
			continue
		}
		child := suture.New(l.String(), childSpec)
		root.Add(child)
		t.layers[l] = child
	}
	return t, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// HasLayer reports whether the tree was built with layer l.
func (t *SupervisorTree) HasLayer(l Layer) bool {
	_, ok := t.layers[l]
	return ok
}

// Add places svc under the supervisor for layer l.
func (t *SupervisorTree) Add(l Layer, svc suture.Service) (suture.ServiceToken, error) {
	sup, ok := t.layers[l]
	if !ok {
		return suture.ServiceToken{}, fmt.Errorf("supervisor tree has no %s", l)
	}
	return sup.Add(svc), nil
}

// Remove stops and removes a service previously added to layer l.
func (t *SupervisorTree) Remove(l Layer, token suture.ServiceToken) error {
	sup, ok := t.layers[l]
	if !ok {
		return fmt.Errorf("supervisor tree has no %s", l)
	}
	return sup.Remove(token)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that did not stop within the
// shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
