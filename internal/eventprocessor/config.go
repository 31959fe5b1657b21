// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package eventprocessor

import (
	"errors"
	"strings"
	"time"

	"github.com/tomtom215/groovesync/internal/config"
)

// ErrNATSNotAvailable is returned by constructors in builds without the
// nats tag.
var ErrNATSNotAvailable = errors.New("NATS support not enabled (build with -tags nats)")

// Relay subject names, prefixed with NATSConfig.SubjectPrefix.
const (
	SubjectNowPlaying = "now_playing"
	SubjectRemotePlay = "remote_play"
)

// Metadata keys set on every relayed message.
const (
	MetadataInstance = "instance_id"
	MetadataKind     = "kind"
)

// RelayConfig holds connection settings shared by publisher and subscriber.
type RelayConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	SubscribersCount int
	CloseTimeout     time.Duration
	SubjectPrefix    string
}

// DefaultRelayConfig returns production defaults for url.
func DefaultRelayConfig(url string) RelayConfig {
	return RelayConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		SubscribersCount: 1,
		CloseTimeout:     10 * time.Second,
		SubjectPrefix:    "groovesync",
	}
}

// RelayConfigFrom builds the relay settings from the nats config section.
func RelayConfigFrom(cfg *config.NATSConfig) RelayConfig {
	rc := DefaultRelayConfig(cfg.URL)
	if cfg.MaxReconnects != 0 {
		rc.MaxReconnects = cfg.MaxReconnects
	}
	if cfg.ReconnectWait > 0 {
		rc.ReconnectWait = cfg.ReconnectWait
	}
	if cfg.SubjectPrefix != "" {
		rc.SubjectPrefix = cfg.SubjectPrefix
	}
	return rc
}

// Subject joins the configured prefix and a subject name.
func (c RelayConfig) Subject(name string) string {
	prefix := strings.TrimSuffix(c.SubjectPrefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host       string
	Port       int
	MaxPayload int32
}

// ServerConfigFrom builds the embedded server settings from the nats
// config section.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	sc := ServerConfig{Host: cfg.EmbeddedHost, Port: cfg.EmbeddedPort, MaxPayload: 1024 * 1024}
	if sc.Host == "" {
		sc.Host = "127.0.0.1"
	}
	return sc
}
