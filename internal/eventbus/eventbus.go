// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

// Package eventbus is the in-process publish/subscribe used by the sync
// client to tell long-lived observers about background work.
//
// Topics are typed: a Topic[T] only carries T, so publishers and
// subscribers agree on the payload at compile time. A subscription lives
// exactly as long as the context passed to Subscribe; canceling it closes
// the returned channel.
//
// The bus is backed by Watermill's gochannel pub/sub. Delivery is
// best-effort: events published with no subscriber are dropped, and a
// subscriber that stops reading holds back only itself.
package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/models"
)

// Bus owns the underlying pub/sub. Create one per process.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// New creates a bus. logger may be nil.
func New(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
		logger: logger,
	}
}

// Close ends every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Topic is a named stream of T.
type Topic[T any] struct {
	name string
}

// Name returns the topic name.
func (t Topic[T]) Name() string { return t.name }

// Publish sends event to every current subscriber of t.
func (t Topic[T]) Publish(b *Bus, event T) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", t.name, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(t.name, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", t.name, err)
	}
	return nil
}

// Subscribe delivers t's events until ctx is canceled, then closes the
// returned channel.
func (t Topic[T]) Subscribe(ctx context.Context, b *Bus) (<-chan T, error) {
	messages, err := b.pubsub.Subscribe(ctx, t.name)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", t.name, err)
	}

	out := make(chan T)
	go func() {
		defer close(out)
		for msg := range messages {
			var event T
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Error("Dropping undecodable event", err, watermill.LogFields{"topic": t.name})
				msg.Ack()
				continue
			}
			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// EntityChangedEvent reports one applied change-feed page.
type EntityChangedEvent struct {
	EntityType models.EntityType `json:"entityType"`
	Upserted   []int64           `json:"upserted"`
	Removed    []int64           `json:"removed"`
}

// OfflineModeEvent reports a change of the persisted offline flag.
type OfflineModeEvent struct {
	Offline bool `json:"offline"`
}

// SyncProgressEvent is published after every page of a sync run.
type SyncProgressEvent struct {
	EntityType models.EntityType `json:"entityType"`
	PageNumber int               `json:"pageNumber"`
	TotalPages int               `json:"totalPages"`
	Applied    int               `json:"applied"`
}

// Topics carried by the bus.
var (
	EntityChanged      = Topic[EntityChangedEvent]{name: "entity_changed"}
	OfflineModeChanged = Topic[OfflineModeEvent]{name: "offline_mode_changed"}
	SyncProgress       = Topic[SyncProgressEvent]{name: "sync_progress"}
)
