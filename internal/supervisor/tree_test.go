// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// countingService runs until canceled, failing the first failures starts.
type countingService struct {
	name     string
	failures int32
	starts   atomic.Int32
}

func (c *countingService) Serve(ctx context.Context) error {
	n := c.starts.Add(1)
	if n <= c.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *countingService) String() string { return c.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitStarts(svc *countingService, want int32, within time.Duration) bool {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if svc.starts.Load() >= want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return svc.starts.Load() >= want
}

func TestNewSupervisorTree(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		tree, err := NewSupervisorTree("test", quietLogger(), TreeConfig{}, LayerAPI)
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("expected defaults, got %+v", tree.config)
		}
		if tree.Root() == nil {
			t.Error("root supervisor is nil")
		}
	})

	t.Run("requires a layer", func(t *testing.T) {
		if _, err := NewSupervisorTree("test", quietLogger(), TreeConfig{}); err == nil {
			t.Error("expected error for a tree without layers")
		}
	})

	t.Run("duplicate layers collapse", func(t *testing.T) {
		tree, err := NewSupervisorTree("test", quietLogger(), TreeConfig{}, LayerSync, LayerSync)
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if len(tree.layers) != 1 {
			t.Errorf("expected 1 layer, got %d", len(tree.layers))
		}
	})

	t.Run("only requested layers exist", func(t *testing.T) {
		tree, _ := NewSupervisorTree("test", quietLogger(), TreeConfig{}, LayerRealtime, LayerAPI)
		if !tree.HasLayer(LayerRealtime) || !tree.HasLayer(LayerAPI) {
			t.Error("requested layers missing")
		}
		if tree.HasLayer(LayerSync) {
			t.Error("sync layer should not exist on a server tree")
		}
		if _, err := tree.Add(LayerSync, &countingService{name: "x"}); err == nil {
			t.Error("expected error adding to a missing layer")
		}
	})
}

func TestLayerString(t *testing.T) {
	cases := map[Layer]string{
		LayerBroker:   "broker-layer",
		LayerRealtime: "realtime-layer",
		LayerAPI:      "api-layer",
		LayerSync:     "sync-layer",
		Layer(42):     "layer(42)",
	}
	for l, want := range cases {
		if got := l.String(); got != want {
			t.Errorf("Layer(%d).String() = %q, want %q", int(l), got, want)
		}
	}
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	tree, err := NewSupervisorTree("groovesync-server", quietLogger(), TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	}, LayerBroker, LayerRealtime, LayerAPI)
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	broker := &countingService{name: "broker"}
	hub := &countingService{name: "hub"}
	api := &countingService{name: "api"}
	for l, svc := range map[Layer]*countingService{LayerBroker: broker, LayerRealtime: hub, LayerAPI: api} {
		if _, err := tree.Add(l, svc); err != nil {
			t.Fatalf("Add(%s): %v", l, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*countingService{broker, hub, api} {
		if !waitStarts(svc, 1, time.Second) {
			t.Errorf("%s was not started", svc.name)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestSupervisorTreeRestartsWithinLayer(t *testing.T) {
	tree, _ := NewSupervisorTree("groovesync-server", quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	}, LayerRealtime, LayerAPI)

	flaky := &countingService{name: "flaky", failures: 2}
	stable := &countingService{name: "stable"}
	tree.Add(LayerRealtime, flaky)
	tree.Add(LayerAPI, stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitStarts(flaky, 3, 2*time.Second) {
		t.Errorf("expected flaky service to reach 3 starts, got %d", flaky.starts.Load())
	}
	if got := stable.starts.Load(); got != 1 {
		t.Errorf("stable service in another layer restarted: %d starts", got)
	}

	cancel()
	<-errCh
}

func TestSupervisorTreeRemove(t *testing.T) {
	tree, _ := NewSupervisorTree("groovesync-agent", quietLogger(), TreeConfig{ShutdownTimeout: time.Second}, LayerSync)
	svc := &countingService{name: "scheduler"}
	token, err := tree.Add(LayerSync, svc)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	if !waitStarts(svc, 1, time.Second) {
		t.Fatal("scheduler was not started")
	}
	if err := tree.Remove(LayerSync, token); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if err := tree.Remove(LayerAPI, token); err == nil {
		t.Error("expected error removing from a missing layer")
	}

	cancel()
	<-errCh
}

func TestDoNotRestartIsHonored(t *testing.T) {
	var starts atomic.Int32
	oneShot := serviceFunc(func(context.Context) error {
		starts.Add(1)
		return suture.ErrDoNotRestart
	})

	tree, _ := NewSupervisorTree("test", quietLogger(), TreeConfig{FailureBackoff: 10 * time.Millisecond}, LayerBroker)
	tree.Add(LayerBroker, oneShot)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	<-tree.ServeBackground(ctx)

	if got := starts.Load(); got != 1 {
		t.Errorf("expected exactly 1 start, got %d", got)
	}
}

type serviceFunc func(context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }
