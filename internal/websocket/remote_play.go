// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/database"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
	"github.com/tomtom215/groovesync/internal/validation"
)

// Remote play error codes returned to the controller.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeTrackNotFound      = "TRACK_NOT_FOUND"
	CodePrivateTrack       = "PRIVATE_TRACK"
	CodeTargetNotConnected = "TARGET_NOT_CONNECTED"
	CodeDeviceNotFound     = "DEVICE_NOT_FOUND"
)

// RemotePlayError is a rejected remote play request. Nothing was delivered.
type RemotePlayError struct {
	Code    string
	Message string
}

func (e *RemotePlayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func rejected(code, format string, args ...any) *RemotePlayError {
	return &RemotePlayError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RemotePlayStore is the persistence the dispatcher reads from.
type RemotePlayStore interface {
	GetDeviceByID(ctx context.Context, id int64) (*models.Device, error)
	GetTracksByIDs(ctx context.Context, viewerID int64, ids []int64) (map[int64]*models.Track, error)
}

// RemotePlay routes playback commands from a controller session to the
// one session of the target device.
type RemotePlay struct {
	registry *Registry
	store    RemotePlayStore
	relay    Relay
	now      func() time.Time
}

// NewRemotePlay creates a dispatcher over registry.
func NewRemotePlay(registry *Registry, store RemotePlayStore) *RemotePlay {
	return &RemotePlay{
		registry: registry,
		store:    store,
		relay:    noopRelay{},
		now:      time.Now,
	}
}

// HandleMessage authorizes and forwards one REMOTE_PLAY request from s.
// Rejections are returned as *RemotePlayError; any other error is an
// internal failure.
func (d *RemotePlay) HandleMessage(ctx context.Context, s *Session, raw []byte) error {
	outcome := "error"
	defer func() { metrics.RecordRemotePlay(outcome) }()

	resp, device, err := d.prepare(ctx, s, raw)
	if err != nil {
		var rpErr *RemotePlayError
		if errors.As(err, &rpErr) {
			outcome = rpErr.Code
		}
		return err
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal remote play: %w", err)
	}

	target := d.registry.FindByDevice(device.UserID, DeviceIdentifier(device.DeviceID))
	if target == nil {
		if !d.relay.Enabled() {
			outcome = CodeTargetNotConnected
			return rejected(CodeTargetNotConnected, "device %d is not connected", device.ID)
		}
		if err := d.relay.PublishRemotePlay(ctx, device.UserID, DeviceIdentifier(device.DeviceID), payload); err != nil {
			return fmt.Errorf("failed to relay remote play: %w", err)
		}
		outcome = "relayed"
		return nil
	}
	if !target.Send(payload) {
		outcome = CodeTargetNotConnected
		return rejected(CodeTargetNotConnected, "device %d is not accepting messages", device.ID)
	}

	metrics.WSMessagesSent.WithLabelValues(string(models.MessageRemotePlay)).Inc()
	logging.Ctx(ctx).Debug().
		Int64("target_device", device.ID).
		Str("action", string(resp.RemotePlayAction)).
		Msg("Remote play delivered")
	outcome = "delivered"
	return nil
}

func (d *RemotePlay) prepare(ctx context.Context, s *Session, raw []byte) (*models.RemotePlayResponse, *models.Device, error) {
	var req models.RemotePlayRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, nil, rejected(CodeInvalidRequest, "malformed remote play request")
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, nil, rejected(CodeInvalidRequest, "%s", verr.Error())
	}

	device, err := d.store.GetDeviceByID(ctx, req.TargetDeviceID)
	if errors.Is(err, database.ErrDeviceNotFound) {
		return nil, nil, rejected(CodeDeviceNotFound, "device %d does not exist", req.TargetDeviceID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load device: %w", err)
	}

	controller := s.UserID()
	if !device.CanBePlayedBy(controller, d.now()) {
		return nil, nil, rejected(CodePermissionDenied, "not allowed to control device %d", device.ID)
	}

	tracks, err := d.expandTracks(ctx, controller, req.TrackIDs)
	if err != nil {
		return nil, nil, err
	}
	if controller != device.UserID {
		for i := range tracks {
			if tracks[i].Private {
				return nil, nil, rejected(CodePrivateTrack, "track %d is private", tracks[i].ID)
			}
		}
	}

	return &models.RemotePlayResponse{
		MessageType:      models.MessageRemotePlay,
		Tracks:           tracks,
		NewFloatValue:    req.NewFloatValue,
		RemotePlayAction: req.RemotePlayAction,
	}, device, nil
}

// expandTracks loads the distinct ids once and rebuilds the list in the
// requested order, repeats included. A single unresolvable id fails the
// whole request.
func (d *RemotePlay) expandTracks(ctx context.Context, viewerID int64, ids []int64) ([]models.Track, error) {
	out := make([]models.Track, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := d.store.GetTracksByIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	for _, id := range ids {
		t, ok := found[id]
		if !ok {
			return nil, rejected(CodeTrackNotFound, "track %d not found", id)
		}
		out = append(out, *t)
	}
	return out, nil
}

// DeliverRelayed hands a remote play forwarded by another instance to the
// local session of the target device, if this instance holds it.
func (d *RemotePlay) DeliverRelayed(ownerID int64, device DeviceIdentifier, payload []byte) bool {
	target := d.registry.FindByDevice(ownerID, device)
	if target == nil {
		return false
	}
	if !target.Send(payload) {
		return false
	}
	metrics.WSMessagesSent.WithLabelValues(string(models.MessageRemotePlay)).Inc()
	return true
}
