// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t, time.Hour)
	token, err := m.GenerateToken(7, "bob")
	if err != nil {
		t.Fatal(err)
	}

	var gotUser int64
	handler := NewMiddleware(m).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantUser int64
	}{
		{name: "bearer header", target: "/", header: "Bearer " + token, wantCode: http.StatusNoContent, wantUser: 7},
		{name: "lowercase scheme", target: "/", header: "bearer " + token, wantCode: http.StatusNoContent, wantUser: 7},
		{name: "query parameter", target: "/ws?token=" + token, wantCode: http.StatusNoContent, wantUser: 7},
		{name: "missing token", target: "/", wantCode: http.StatusUnauthorized},
		{name: "basic scheme", target: "/", header: "Basic Zm9vOmJhcg==", wantCode: http.StatusUnauthorized},
		{name: "bad token", target: "/", header: "Bearer nope", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = 0
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %d, want %d", gotUser, tt.wantUser)
			}
		})
	}
}

func TestUserIDFromContextWithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := UserIDFromContext(req.Context()); id != 0 {
		t.Errorf("UserIDFromContext() = %d, want 0", id)
	}
}
