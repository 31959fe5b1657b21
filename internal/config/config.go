// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

// Package config loads groovesync configuration for both the server and the
// sync agent.
//
// Loading order (later layers win):
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/groovesync/config.yaml)
//  3. Environment variables (HTTP_PORT, DUCKDB_PATH, JWT_SECRET, SYNC_BASE_URL, ...)
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config holds all configuration. The server reads every section except
// Client; the agent reads Client and Logging.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Feed      FeedConfig      `koanf:"feed"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Security  SecurityConfig  `koanf:"security"`
	NATS      NATSConfig      `koanf:"nats"`
	Client    ClientConfig    `koanf:"client"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig points at the DuckDB file. ":memory:" is accepted.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// FeedConfig bounds change-feed paging.
type FeedConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// WebSocketConfig tunes the live session hub.
type WebSocketConfig struct {
	SendBuffer     int           `koanf:"send_buffer"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	PongWait       time.Duration `koanf:"pong_wait"`
	WriteWait      time.Duration `koanf:"write_wait"`
}

// SecurityConfig holds token verification, CORS and rate limits.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RateLimitReqs  int           `koanf:"rate_limit_requests"`
	RateLimitWin   time.Duration `koanf:"rate_limit_window"`
}

// NATSConfig enables the cross-instance relay. It only takes effect in
// binaries built with -tags=nats.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	EmbeddedHost  string        `koanf:"embedded_host"`
	EmbeddedPort  int           `koanf:"embedded_port"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	SubjectPrefix string        `koanf:"subject_prefix"`
}

// ClientConfig configures the headless sync agent.
type ClientConfig struct {
	BaseURL             string        `koanf:"base_url"`
	Token               string        `koanf:"token"`
	UserID              int64         `koanf:"user_id"`
	DeviceID            string        `koanf:"device_id"`
	StorePath           string        `koanf:"store_path"`
	Interval            time.Duration `koanf:"interval"`
	RecentSyncThreshold time.Duration `koanf:"recent_sync_threshold"`
	PageSize            int           `koanf:"page_size"`
	Workers             int           `koanf:"workers"`
	RequestTimeout      time.Duration `koanf:"request_timeout"`
	ListenAttempts      int           `koanf:"listen_attempts"`
	ReplayRate          float64       `koanf:"replay_rate"`
	Offline             bool          `koanf:"offline"`
	LowPower            bool          `koanf:"low_power"`
}

// LoggingConfig mirrors logging.Config. File, when set, sends agent output
// to a rotating log file.
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}
