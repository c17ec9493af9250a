// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

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

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"sidetrackd.yaml",
	"sidetrackd.yml",
	"/etc/sidetrackd/config.yaml",
	"/etc/sidetrackd/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "SIDETRACK_CONFIG"

// defaultConfig returns a Config with every field at its shipped default.
// Defaults are applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		API: APIConfig{
			Listen:          "127.0.0.1:8413",
			AuthToken:       "", // loopback listener, auth off by default
			RateLimit:       60,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"http://localhost:8413", "http://127.0.0.1:8413"},
			ShutdownTimeout: 10 * time.Second,
		},
		Bluetooth: BluetoothConfig{
			Adapter:          "hci0",
			DeviceNameFilter: "Sidetrack",
			DiscoveryWindow:  10 * time.Second,
			ConnectTimeout:   20 * time.Second,
		},
		Remote: RemoteConfig{
			BaseURL:       "https://track.example.com",
			Token:         "",
			Timeout:       30 * time.Second,
			ProbeInterval: 15 * time.Second,
			RatePerSec:    5,
			Burst:         10,
		},
		Tracking: TrackingConfig{
			ShortSessionCutoff: 10 * time.Second,
			LiveGapMin:         20 * time.Second,
			LiveGapMax:         60 * time.Second,
			Lookback:           24 * time.Hour,
			Mappings:           map[string]string{},
		},
		Notify: NotifyConfig{
			Enabled: true,
			Spacing: 5 * time.Second,
		},
		Registry: RegistryConfig{
			Path:           "/var/lib/sidetrackd",
			InMemory:       false,
			AuditRetention: 720 * time.Hour, // 30 days
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: SIDETRACK_* overrides
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile loads configuration with an explicit config file path, bypassing
// the search order. The file must exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return loadFrom(path)
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// SIDETRACK_REMOTE_BASE_URL -> remote.base_url, per the transform map.
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields given as comma-separated strings.
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive from the environment as plain strings.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML): nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
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
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps SIDETRACK_* environment variable names to koanf
// config paths. Unmapped keys return empty string and are skipped, so
// unrelated environment variables never pollute the configuration.
//
// Examples:
//   - SIDETRACK_LOG_LEVEL -> log.level
//   - SIDETRACK_REMOTE_BASE_URL -> remote.base_url
//   - SIDETRACK_BT_ADAPTER -> bluetooth.adapter
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Logging
		"sidetrack_log_level":  "log.level",
		"sidetrack_log_format": "log.format",
		"sidetrack_log_caller": "log.caller",

		// Control API
		"sidetrack_api_listen":            "api.listen",
		"sidetrack_api_auth_token":        "api.auth_token",
		"sidetrack_api_rate_limit":        "api.rate_limit",
		"sidetrack_api_rate_limit_window": "api.rate_limit_window",
		"sidetrack_api_cors_origins":      "api.cors_origins",
		"sidetrack_api_shutdown_timeout":  "api.shutdown_timeout",

		// Bluetooth link
		"sidetrack_bt_adapter":          "bluetooth.adapter",
		"sidetrack_bt_name_filter":      "bluetooth.device_name_filter",
		"sidetrack_bt_discovery_window": "bluetooth.discovery_window",
		"sidetrack_bt_connect_timeout":  "bluetooth.connect_timeout",

		// Remote time service
		"sidetrack_remote_base_url":       "remote.base_url",
		"sidetrack_remote_token":          "remote.token",
		"sidetrack_remote_timeout":        "remote.timeout",
		"sidetrack_remote_probe_interval": "remote.probe_interval",
		"sidetrack_remote_rate_per_sec":   "remote.rate_per_sec",
		"sidetrack_remote_burst":          "remote.burst",

		// Tracking engine
		"sidetrack_tracking_short_cutoff": "tracking.short_session_cutoff",
		"sidetrack_tracking_gap_min":      "tracking.live_gap_min",
		"sidetrack_tracking_gap_max":      "tracking.live_gap_max",
		"sidetrack_tracking_lookback":     "tracking.lookback",

		// Notifications
		"sidetrack_notify_enabled": "notify.enabled",
		"sidetrack_notify_spacing": "notify.spacing",

		// Registry
		"sidetrack_registry_path":            "registry.path",
		"sidetrack_registry_in_memory":       "registry.in_memory",
		"sidetrack_registry_audit_retention": "registry.audit_retention",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped.
	return ""
}

// WatchConfigFile sets up a file watcher for hot reload. On every change the
// callback receives a freshly loaded and validated Config; load failures are
// reported to the callback as an error with the previous Config untouched.
//
// Example:
//
//	err := config.WatchConfigFile(path, func(cfg *config.Config, err error) {
//	    if err != nil {
//	        logging.Warn().Err(err).Msg("Config reload failed, keeping previous")
//	        return
//	    }
//	    engine.UpdateMappings(ctx, cfg.Tracking.FaceMappings())
//	})
func WatchConfigFile(path string, callback func(*Config, error)) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		cfg, loadErr := loadFrom(path)
		callback(cfg, loadErr)
	})
}
