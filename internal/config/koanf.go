// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/groovesync/config.yaml",
	"/etc/groovesync/config.yml",
}

// ConfigPathEnvVar overrides the search above.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/groovesync.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Feed: FeedConfig{
			DefaultPageSize: 400,
			MaxPageSize:     1000,
		},
		WebSocket: WebSocketConfig{
			SendBuffer:     256,
			MaxMessageSize: 512 * 1024,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
		},
		Security: SecurityConfig{
			SessionTimeout: 24 * time.Hour,
			CORSOrigins:    []string{"*"},
			RateLimitReqs:  300,
			RateLimitWin:   time.Minute,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			EmbeddedHost:  "127.0.0.1",
			EmbeddedPort:  4222,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			SubjectPrefix: "groovesync",
		},
		Client: ClientConfig{
			StorePath:           "groovesync-agent.db",
			Interval:            15 * time.Minute,
			RecentSyncThreshold: 5 * time.Minute,
			PageSize:            400,
			Workers:             3,
			RequestTimeout:      30 * time.Second,
			ListenAttempts:      3,
			ReplayRate:          2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit file. An empty path skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma separated env values for slice fields.
// Values that already arrived as slices from YAML are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.read_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"feed_default_page_size": "feed.default_page_size",
	"feed_max_page_size":     "feed.max_page_size",

	"ws_send_buffer":      "websocket.send_buffer",
	"ws_max_message_size": "websocket.max_message_size",
	"ws_pong_wait":        "websocket.pong_wait",

	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded",
	"nats_embedded_port":  "nats.embedded_port",
	"nats_subject_prefix": "nats.subject_prefix",

	"sync_base_url":         "client.base_url",
	"sync_token":            "client.token",
	"sync_user_id":          "client.user_id",
	"sync_device_id":        "client.device_id",
	"sync_store_path":       "client.store_path",
	"sync_interval":         "client.interval",
	"sync_recent_threshold": "client.recent_sync_threshold",
	"sync_page_size":        "client.page_size",
	"sync_workers":          "client.workers",
	"sync_listen_attempts":  "client.listen_attempts",
	"sync_replay_rate":      "client.replay_rate",
	"sync_offline":          "client.offline",
	"sync_low_power":        "client.low_power",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
	"log_file":   "logging.file",
}

// envTransformFunc maps flat environment names (HTTP_PORT, SYNC_BASE_URL) to
// koanf paths. Unmapped variables are dropped so that unrelated environment
// does not leak into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
