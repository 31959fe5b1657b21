// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/groovesync/internal/models"
)

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}

func TestValidateMarkListenedRequest(t *testing.T) {
	lat := 91.0
	tests := []struct {
		name      string
		req       models.MarkListenedRequest
		wantField string
	}{
		{name: "valid", req: models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC"}},
		{name: "missing track", req: models.MarkListenedRequest{IanaTimezone: "UTC"}, wantField: "trackId"},
		{name: "missing timezone", req: models.MarkListenedRequest{TrackID: 1}, wantField: "ianaTimezone"},
		{name: "latitude out of range", req: models.MarkListenedRequest{TrackID: 1, IanaTimezone: "UTC", Latitude: &lat}, wantField: "latitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() expected error")
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestCustomValidators(t *testing.T) {
	device := models.DeviceUpsertRequest{DeviceID: "abc", DeviceName: "Phone", DeviceType: "TOASTER"}
	err := ValidateStruct(&device)
	if err == nil || err.Errors()[0].Tag() != "devicetype" {
		t.Fatalf("ValidateStruct(device) = %v, want devicetype failure", err)
	}
	device.DeviceType = "ANDROID"
	if err := ValidateStruct(&device); err != nil {
		t.Errorf("ValidateStruct(device) unexpected error = %v", err)
	}

	remote := models.RemotePlayRequest{TargetDeviceID: 3, RemotePlayAction: "DANCE"}
	err = ValidateStruct(&remote)
	if err == nil || err.Errors()[0].Tag() != "remoteplayaction" {
		t.Fatalf("ValidateStruct(remote) = %v, want remoteplayaction failure", err)
	}
	remote.RemotePlayAction = models.RemotePlaySeek
	if err := ValidateStruct(&remote); err != nil {
		t.Errorf("ValidateStruct(remote) unexpected error = %v", err)
	}
}

func TestPartyModeRequest(t *testing.T) {
	closing := models.PartyModeRequest{DeviceID: 1}
	if err := ValidateStruct(&closing); err != nil {
		t.Errorf("disable request rejected: %v", err)
	}

	opening := models.PartyModeRequest{DeviceID: 1, Enabled: true}
	err := ValidateStruct(&opening)
	if err == nil {
		t.Fatal("enable request without members or duration accepted")
	}
	if len(err.Errors()) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(err.Errors()), err)
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&models.MarkListenedRequest{TrackID: 1})
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Message != "ianaTimezone is required" {
		t.Errorf("single ToAPIError() = %+v", apiErr)
	}
	if apiErr.Details["field"] != "ianaTimezone" {
		t.Errorf("details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&models.MarkListenedRequest{})
	apiErr = multi.ToAPIError()
	if !strings.Contains(apiErr.Message, "; ") {
		t.Errorf("multi message = %q, want joined messages", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Errorf("multi details = %v, want fields", apiErr.Details)
	}

	empty := &RequestValidationError{}
	if empty.Error() != "validation failed" || empty.ToAPIError().Message != "Validation failed" {
		t.Error("empty RequestValidationError messages wrong")
	}
}

func TestTrackIDsLimit(t *testing.T) {
	req := models.RemotePlayRequest{TargetDeviceID: 1, RemotePlayAction: models.RemotePlaySetSongs, TrackIDs: make([]int64, 1001)}
	for i := range req.TrackIDs {
		req.TrackIDs[i] = int64(i + 1)
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("1001 track ids accepted")
	}
	if msg := err.Errors()[0].Error(); msg != "trackIds must have at most 1000 items" {
		t.Errorf("message = %q", msg)
	}
}
