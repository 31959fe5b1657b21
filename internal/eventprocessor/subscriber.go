// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/groovesync/internal/metrics"
)

// RelayMessage is one message received from another instance.
type RelayMessage struct {
	Subject    string
	Kind       string
	InstanceID string
	Payload    []byte
}

// HandlerFunc processes one relayed message. Errors are logged; relay
// messages are never redelivered.
type HandlerFunc func(ctx context.Context, msg RelayMessage) error

// Subscriber wraps the Watermill NATS subscriber for fan-out delivery.
type Subscriber struct {
	subscriber message.Subscriber
	instanceID string
	logger     watermill.LoggerAdapter
}

// NewSubscriber connects a core NATS subscriber without a queue group so
// that every instance receives every message.
func NewSubscriber(cfg RelayConfig, instanceID string, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("groovesync-relay-sub-" + instanceID),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: cfg.SubscribersCount,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, instanceID: instanceID, logger: logger}, nil
}

// Run delivers messages on subject to fn until ctx is canceled. Messages
// published by this instance are skipped.
func (s *Subscriber) Run(ctx context.Context, subject string, fn HandlerFunc) error {
	messages, err := s.subscriber.Subscribe(ctx, subject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.process(ctx, subject, msg, fn)
		}
	}
}

func (s *Subscriber) process(ctx context.Context, subject string, msg *message.Message, fn HandlerFunc) {
	defer msg.Ack()

	origin := msg.Metadata.Get(MetadataInstance)
	if origin == s.instanceID {
		return
	}
	err := fn(ctx, RelayMessage{
		Subject:    subject,
		Kind:       msg.Metadata.Get(MetadataKind),
		InstanceID: origin,
		Payload:    msg.Payload,
	})
	if err != nil {
		s.logger.Error("Relay message handling failed", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"subject":      subject,
		})
		return
	}
	metrics.RelayDelivered.WithLabelValues(subject).Inc()
}

// Close gracefully shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}
