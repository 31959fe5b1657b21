// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package models

import (
	"fmt"
	"time"
)

// DeviceType is the client platform a device runs on.
type DeviceType string

const (
	DeviceWeb     DeviceType = "WEB"
	DeviceAndroid DeviceType = "ANDROID"
	DeviceIPhone  DeviceType = "IPHONE"
)

// ParseDeviceType validates a raw device type.
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(s) {
	case DeviceWeb, DeviceAndroid, DeviceIPhone:
		return DeviceType(s), nil
	}
	return "", fmt.Errorf("unknown device type %q", s)
}

// ReceivesNowListening reports whether a device of this type displays the
// listen state of other devices. Only the web client renders it today.
func (d DeviceType) ReceivesNowListening() bool {
	return d == DeviceWeb
}

// Device is a registered client installation. DeviceID is the stable
// identifier chosen by the client and survives reconnects; ID is the
// server-assigned row id that remote-play requests address.
type Device struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"userId"`
	DeviceID          string     `json:"deviceId"`
	DeviceName        string     `json:"deviceName"`
	DeviceType        DeviceType `json:"deviceType"`
	PartyEnabledUntil *time.Time `json:"partyEnabledUntil"`
	PartyUserIDs      []int64    `json:"partyUserIds"`
	CreatedAt         Timestamp  `json:"createdAt"`
	UpdatedAt         Timestamp  `json:"updatedAt"`
}

// CanBePlayedBy reports whether userID may send remote-play commands to the
// device at time now. Party membership only counts while the party window
// is open.
func (d *Device) CanBePlayedBy(userID int64, now time.Time) bool {
	if userID == d.UserID {
		return true
	}
	if d.PartyEnabledUntil == nil || !d.PartyEnabledUntil.After(now) {
		return false
	}
	for _, id := range d.PartyUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// DeviceUpsertRequest registers or renames a device for the caller.
type DeviceUpsertRequest struct {
	DeviceID   string `json:"deviceId" validate:"required,max=128"`
	DeviceName string `json:"deviceName" validate:"required,max=255"`
	DeviceType string `json:"deviceType" validate:"required,devicetype"`
}

// PartyModeRequest opens or closes a device's party window.
type PartyModeRequest struct {
	DeviceID        int64   `json:"deviceId" validate:"required,gt=0"`
	Enabled         bool    `json:"enabled"`
	PartyUserIDs    []int64 `json:"partyUserIds" validate:"required_if=Enabled true,dive,gt=0"`
	DurationSeconds int64   `json:"durationSeconds" validate:"required_if=Enabled true,gte=0,lte=604800"`
}
