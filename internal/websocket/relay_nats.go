// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/groovesync/internal/eventprocessor"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/models"
)

// NATSRelay connects a Hub to its peers over NATS. Without the nats build
// tag NewNATSRelay returns eventprocessor.ErrNATSNotAvailable.
type NATSRelay struct {
	hub *Hub
	cfg eventprocessor.RelayConfig
	pub *eventprocessor.Publisher
	sub *eventprocessor.Subscriber
}

// NewNATSRelay connects the publisher and subscriber for hub. The relay is
// not attached until the caller passes it to Hub.SetRelay.
func NewNATSRelay(hub *Hub, cfg eventprocessor.RelayConfig, instanceID string) (*NATSRelay, error) {
	adapter := logging.NewWatermillAdapter("relay")

	pub, err := eventprocessor.NewPublisher(cfg, instanceID, adapter)
	if err != nil {
		return nil, err
	}
	sub, err := eventprocessor.NewSubscriber(cfg, instanceID, adapter)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return &NATSRelay{hub: hub, cfg: cfg, pub: pub, sub: sub}, nil
}

func (r *NATSRelay) Enabled() bool { return true }

func (r *NATSRelay) PublishNowPlaying(ctx context.Context, state *models.NowListeningState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return r.pub.Publish(ctx, r.cfg.Subject(eventprocessor.SubjectNowPlaying), string(models.MessageNowPlaying), payload)
}

func (r *NATSRelay) PublishRemotePlay(ctx context.Context, ownerID int64, device DeviceIdentifier, payload []byte) error {
	data, err := json.Marshal(relayedRemotePlay{OwnerID: ownerID, DeviceID: string(device), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal remote play: %w", err)
	}
	return r.pub.Publish(ctx, r.cfg.Subject(eventprocessor.SubjectRemotePlay), string(models.MessageRemotePlay), data)
}

// Serve consumes peer messages until ctx is canceled.
func (r *NATSRelay) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.sub.Run(gctx, r.cfg.Subject(eventprocessor.SubjectNowPlaying), r.onNowPlaying)
	})
	g.Go(func() error {
		return r.sub.Run(gctx, r.cfg.Subject(eventprocessor.SubjectRemotePlay), r.onRemotePlay)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *NATSRelay) onNowPlaying(_ context.Context, msg eventprocessor.RelayMessage) error {
	r.hub.NowListening().DeliverRelayed(msg.Payload)
	return nil
}

func (r *NATSRelay) onRemotePlay(ctx context.Context, msg eventprocessor.RelayMessage) error {
	var fwd relayedRemotePlay
	if err := json.Unmarshal(msg.Payload, &fwd); err != nil {
		return fmt.Errorf("invalid remote play relay: %w", err)
	}
	if !r.hub.RemotePlay().DeliverRelayed(fwd.OwnerID, DeviceIdentifier(fwd.DeviceID), fwd.Payload) {
		logging.Ctx(ctx).Debug().
			Str("device_id", fwd.DeviceID).
			Str("origin", msg.InstanceID).
			Msg("Relayed remote play has no local target")
	}
	return nil
}

// Close releases the NATS connections.
func (r *NATSRelay) Close() error {
	return errors.Join(r.sub.Close(), r.pub.Close())
}
