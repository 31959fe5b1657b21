// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*HubService)(nil)
	_ suture.Service = (*RelayService)(nil)
	_ suture.Service = (*EmbeddedNATSService)(nil)
)

type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stop        chan struct{}
	stopOnce    sync.Once
	listens     atomic.Int32
	shutdowns   atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{
		started: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	f.listens.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHTTPServerService(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Second} {
			if svc := NewHTTPServerService(newFakeHTTPServer(), d); svc.shutdownTimeout != defaultShutdownTimeout {
				t.Errorf("timeout %v: got %v", d, svc.shutdownTimeout)
			}
		}
	})

	t.Run("drains on cancel", func(t *testing.T) {
		srv := newFakeHTTPServer()
		svc := NewHTTPServerService(srv, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-srv.started
		cancel()
		if err := waitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("expected one Shutdown, got %d", srv.shutdowns.Load())
		}
	})

	t.Run("bind failure is returned", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		srv := newFakeHTTPServer()
		srv.listenErr = bindErr
		err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
		if !errors.Is(err, bindErr) {
			t.Errorf("expected wrapped bind error, got %v", err)
		}
	})

	t.Run("shutdown failure is returned", func(t *testing.T) {
		shutdownErr := errors.New("deadline exceeded")
		srv := newFakeHTTPServer()
		srv.shutdownErr = shutdownErr
		svc := NewHTTPServerService(srv, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-srv.started
		cancel()
		if err := waitErr(t, errCh); !errors.Is(err, shutdownErr) {
			t.Errorf("expected shutdown error, got %v", err)
		}
	})

	if got := NewHTTPServerService(newFakeHTTPServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

type fakeHub struct {
	runs atomic.Int32
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubService(t *testing.T) {
	hub := &fakeHub{}
	svc := NewHubService(hub)
	if svc.String() != "session-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if hub.runs.Load() != 1 {
		t.Errorf("expected one run, got %d", hub.runs.Load())
	}
}

type fakeRelay struct {
	err   error
	block bool
}

func (f *fakeRelay) Serve(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.err
}

func TestRelayService(t *testing.T) {
	t.Run("cancel returns ctx error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewRelayService(&fakeRelay{block: true}).Serve(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("consumer error is wrapped", func(t *testing.T) {
		subErr := errors.New("nats: connection closed")
		err := NewRelayService(&fakeRelay{err: subErr}).Serve(context.Background())
		if !errors.Is(err, subErr) {
			t.Errorf("expected wrapped consumer error, got %v", err)
		}
	})

	t.Run("clean exit while running is an error", func(t *testing.T) {
		if err := NewRelayService(&fakeRelay{}).Serve(context.Background()); err == nil {
			t.Error("expected an error so the supervisor restarts the consumer")
		}
	})
}

type fakeBroker struct {
	running   atomic.Bool
	shutdowns atomic.Int32
}

func (f *fakeBroker) IsRunning() bool { return f.running.Load() }

func (f *fakeBroker) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.running.Store(false)
	return nil
}

func TestEmbeddedNATSService(t *testing.T) {
	t.Run("shuts the broker down on cancel", func(t *testing.T) {
		broker := &fakeBroker{}
		broker.running.Store(true)
		svc := NewEmbeddedNATSService(broker, time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
		if broker.shutdowns.Load() != 1 {
			t.Errorf("expected one Shutdown, got %d", broker.shutdowns.Load())
		}
	})

	t.Run("dead broker is not restarted", func(t *testing.T) {
		broker := &fakeBroker{}
		svc := NewEmbeddedNATSService(broker, time.Second)
		svc.pollInterval = time.Millisecond

		err := svc.Serve(context.Background())
		if !errors.Is(err, ErrBrokerStopped) {
			t.Errorf("expected ErrBrokerStopped, got %v", err)
		}
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("expected ErrDoNotRestart, got %v", err)
		}
	})
}

func TestServicesUnderSupervisor(t *testing.T) {
	srv := newFakeHTTPServer()
	hub := &fakeHub{}

	sup := suture.New("test", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(NewHTTPServerService(srv, time.Second))
	sup.Add(NewHubService(hub))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("http server did not start")
	}
	cancel()
	<-errCh

	if srv.shutdowns.Load() < 1 {
		t.Error("http server was not shut down")
	}
	if hub.runs.Load() < 1 {
		t.Error("hub was not run")
	}
}
