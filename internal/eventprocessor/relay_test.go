// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

//go:build nats

package eventprocessor

import (
	"context"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	srv, err := NewEmbeddedServer(&ServerConfig{Host: "127.0.0.1", Port: -1, MaxPayload: 1024 * 1024})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestRelayFanOutSkipsOwnMessages(t *testing.T) {
	srv := startTestServer(t)
	cfg := DefaultRelayConfig(srv.ClientURL())
	subject := cfg.Subject(SubjectNowPlaying)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan RelayMessage, 4)
	subscribers := make([]*Subscriber, 0, 2)
	for _, id := range []string{"a", "b"} {
		sub, err := NewSubscriber(cfg, id, nil)
		if err != nil {
			t.Fatalf("NewSubscriber(%s) error = %v", id, err)
		}
		subscribers = append(subscribers, sub)
		go func(id string, sub *Subscriber) {
			_ = sub.Run(ctx, subject, func(_ context.Context, msg RelayMessage) error {
				msg.Kind = id + ":" + msg.Kind
				select {
				case received <- msg:
				default:
				}
				return nil
			})
		}(id, sub)
	}
	defer func() {
		for _, s := range subscribers {
			_ = s.Close()
		}
	}()

	pub, err := NewPublisher(cfg, "a", nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer func() { _ = pub.Close() }()

	// Core NATS drops messages published before the subscription is live.
	deadline := time.After(10 * time.Second)
	for {
		if err := pub.Publish(ctx, subject, "state", []byte(`{"x":1}`)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		select {
		case msg := <-received:
			if msg.Kind != "b:state" {
				t.Fatalf("message delivered to %q, want only instance b", msg.Kind)
			}
			if msg.InstanceID != "a" || string(msg.Payload) != `{"x":1}` {
				t.Errorf("message = %+v", msg)
			}
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no relay message received")
		}
	}
}
