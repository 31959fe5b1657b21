// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package config

import (
	"fmt"
	"strings"
)

// Validate checks the sections used by the server.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateWebSocket(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateServer adds the checks that only matter when serving HTTP, such
// as the signing secret.
func (c *Config) ValidateServer() error {
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Security.RateLimitReqs <= 0 || c.Security.RateLimitWin <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}
	return nil
}

// ValidateClient checks the agent section.
func (c *Config) ValidateClient() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("SYNC_BASE_URL is required")
	}
	if err := validateBaseURL(c.Client.BaseURL, "SYNC_BASE_URL"); err != nil {
		return err
	}
	if c.Client.Token == "" {
		return fmt.Errorf("SYNC_TOKEN is required")
	}
	if c.Client.DeviceID == "" {
		return fmt.Errorf("SYNC_DEVICE_ID is required")
	}
	if c.Client.StorePath == "" {
		return fmt.Errorf("SYNC_STORE_PATH is required")
	}
	if c.Client.PageSize <= 0 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be positive, got %d", c.Client.PageSize)
	}
	if c.Client.Workers <= 0 {
		return fmt.Errorf("SYNC_WORKERS must be positive, got %d", c.Client.Workers)
	}
	if c.Client.ListenAttempts <= 0 {
		return fmt.Errorf("SYNC_LISTEN_ATTEMPTS must be positive, got %d", c.Client.ListenAttempts)
	}
	if c.Client.ReplayRate <= 0 {
		return fmt.Errorf("SYNC_REPLAY_RATE must be positive, got %v", c.Client.ReplayRate)
	}
	if c.Client.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %v", c.Client.Interval)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.MaxPageSize <= 0 {
		return fmt.Errorf("feed max page size must be positive, got %d", c.Feed.MaxPageSize)
	}
	if c.Feed.DefaultPageSize <= 0 || c.Feed.DefaultPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("feed default page size must be in 1..%d, got %d", c.Feed.MaxPageSize, c.Feed.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive, got %d", c.WebSocket.SendBuffer)
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("websocket max message size must be positive")
	}
	if c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		return fmt.Errorf("websocket pong and write waits must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled || c.NATS.Embedded {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
