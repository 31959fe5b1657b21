// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/models"
)

// writeConfig points the agent at an unreachable server; every test stays
// on paths that never dial it.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	yaml := `
client:
  base_url: http://127.0.0.1:1
  token: test-token
  user_id: 7
  device_id: test-device
  store_path: ` + filepath.Join(dir, "store") + `
logging:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestOfflineWorkflow(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, cfg, "offline", "on")
	if err != nil || !strings.Contains(out, "Offline mode on") {
		t.Fatalf("offline on: %v, %q", err, out)
	}

	out, err = execute(t, cfg, "listen", "42", "--tz", "Europe/Paris")
	if err != nil || !strings.Contains(out, "track 42 recorded") {
		t.Fatalf("listen: %v, %q", err, out)
	}

	out, err = execute(t, cfg, "sync", "--force")
	if err != nil || !strings.Contains(out, "Sync skipped: offline") {
		t.Fatalf("sync while offline: %v, %q", err, out)
	}

	out, err = execute(t, cfg, "replay-listens")
	if err != nil || !strings.Contains(out, "Replayed 0 listen(s), 1 still queued") {
		t.Fatalf("replay while offline: %v, %q", err, out)
	}

	out, err = execute(t, cfg, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"test-device (user 7)", "Offline:      true", "Queued plays: 1", "Last full:    never"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	if out, err = execute(t, cfg, "offline", "off"); err != nil {
		t.Fatalf("offline off: %v, %q", err, out)
	}
	out, _ = execute(t, cfg, "status")
	if !strings.Contains(out, "Offline:      false") {
		t.Errorf("offline flag not cleared:\n%s", out)
	}
}

func TestCommandArgumentErrors(t *testing.T) {
	cfg := writeConfig(t)

	cases := [][]string{
		{"sync", "--type", "album"},
		{"listen", "abc"},
		{"listen", "-3"},
		{"offline", "maybe"},
		{"status", "extra"},
	}
	for _, args := range cases {
		if _, err := execute(t, cfg, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestMissingClientConfigIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, path, "status"); err == nil || !strings.Contains(err.Error(), "invalid agent configuration") {
		t.Errorf("expected agent configuration error, got %v", err)
	}
}

func TestParseTypes(t *testing.T) {
	got, err := parseTypes([]string{"track", " playlistTrack "})
	if err != nil {
		t.Fatalf("parseTypes: %v", err)
	}
	if len(got) != 2 || got[0] != models.EntityTrack || got[1] != models.EntityPlaylistTrack {
		t.Errorf("parseTypes = %v", got)
	}
	if got, _ := parseTypes(nil); len(got) != 0 {
		t.Errorf("empty input should select nothing explicitly, got %v", got)
	}
}

func TestFormatStamp(t *testing.T) {
	if got := formatStamp(models.Timestamp{}); got != "never" {
		t.Errorf("zero stamp = %q", got)
	}
	ts := models.NewTimestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if got := formatStamp(ts); got != "2026-03-01T12:00:00Z" {
		t.Errorf("formatStamp = %q", got)
	}
}

func TestLogOutput(t *testing.T) {
	w, closer := logOutput(&config.LoggingConfig{})
	if w != os.Stderr || closer != nil {
		t.Error("empty file should log to stderr")
	}

	path := filepath.Join(t.TempDir(), "agent.log")
	w, closer = logOutput(&config.LoggingConfig{File: path, MaxSizeMB: 1})
	if closer == nil {
		t.Fatal("file output should be closable")
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello\n" {
		t.Errorf("log file = %q, %v", data, err)
	}
}
