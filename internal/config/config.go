// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Config holds all daemon configuration.
//
// Thread safety: Config is immutable after Load() and safe for concurrent
// read access. Reloads produce a new Config rather than mutating in place.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	API       APIConfig       `koanf:"api"`
	Bluetooth BluetoothConfig `koanf:"bluetooth"`
	Remote    RemoteConfig    `koanf:"remote"`
	Tracking  TrackingConfig  `koanf:"tracking"`
	Notify    NotifyConfig    `koanf:"notify"`
	Registry  RegistryConfig  `koanf:"registry"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"` // include caller file:line
}

// APIConfig configures the loopback control API.
type APIConfig struct {
	Listen          string        `koanf:"listen"`            // host:port, loopback by default
	AuthToken       string        `koanf:"auth_token"`        // optional static bearer token; empty disables auth
	RateLimit       int           `koanf:"rate_limit"`        // requests per window per client
	RateLimitWindow time.Duration `koanf:"rate_limit_window"` // rate limit window
	CORSOrigins     []string      `koanf:"cors_origins"`      // allowed origins for the local status page
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`  // graceful shutdown deadline
}

// BluetoothConfig configures the BlueZ link to the tracking die.
type BluetoothConfig struct {
	Adapter          string        `koanf:"adapter"`            // adapter name under /org/bluez, e.g. hci0
	DeviceNameFilter string        `koanf:"device_name_filter"` // prefix candidate devices must carry
	DiscoveryWindow  time.Duration `koanf:"discovery_window"`   // manual discovery collection window
	ConnectTimeout   time.Duration `koanf:"connect_timeout"`    // per Connect call
}

// RemoteConfig configures the time-tracking service client.
type RemoteConfig struct {
	BaseURL       string        `koanf:"base_url"`       // service root, e.g. https://track.example.com
	Token         string        `koanf:"token"`          // bearer token
	Timeout       time.Duration `koanf:"timeout"`        // per-call deadline
	ProbeInterval time.Duration `koanf:"probe_interval"` // reachability probe cadence while offline
	RatePerSec    float64       `koanf:"rate_per_sec"`   // outbound request rate cap
	Burst         int           `koanf:"burst"`          // rate limiter burst
}

// TrackingConfig holds the session engine tunables and the face mapping.
//
// Mappings keys are decimal face identifiers ("1".."N"); YAML integer keys
// arrive as strings through koanf. A missing or empty description means the
// face is untracked.
type TrackingConfig struct {
	ShortSessionCutoff time.Duration     `koanf:"short_session_cutoff"` // below this a session is a noise flip
	LiveGapMin         time.Duration     `koanf:"live_gap_min"`         // conflict window lower bound
	LiveGapMax         time.Duration     `koanf:"live_gap_max"`         // conflict window upper bound
	Lookback           time.Duration     `koanf:"lookback"`             // fetch window reaching back from a session start
	Mappings           map[string]string `koanf:"mappings"`
}

// NotifyConfig configures the notification sequencer.
type NotifyConfig struct {
	Enabled bool          `koanf:"enabled"`
	Spacing time.Duration `koanf:"spacing"` // delay between deliveries
}

// RegistryConfig configures the badger-backed device registry.
type RegistryConfig struct {
	Path           string        `koanf:"path"`            // badger directory
	InMemory       bool          `koanf:"in_memory"`       // volatile store, used by tests
	AuditRetention time.Duration `koanf:"audit_retention"` // TTL for submission audit records
}

// FaceMappings returns the face mapping with parsed integer keys, dropping
// entries with empty descriptions (untracked). Keys outside 1..255 are
// rejected by Validate, so this never fails after a successful Load.
func (t TrackingConfig) FaceMappings() map[uint8]string {
	out := make(map[uint8]string, len(t.Mappings))
	for k, v := range t.Mappings {
		if v == "" {
			continue
		}
		face, err := strconv.ParseUint(k, 10, 8)
		if err != nil || face == 0 {
			continue
		}
		out[uint8(face)] = v
	}
	return out
}

// MappedFaces returns the tracked face identifiers in ascending order.
// Used by the status API for a stable presentation.
func (t TrackingConfig) MappedFaces() []uint8 {
	m := t.FaceMappings()
	faces := make([]uint8, 0, len(m))
	for f := range m {
		faces = append(faces, f)
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i] < faces[j] })
	return faces
}

// Validate checks the configuration for missing or contradictory values.
// It is called by Load after all layers are applied.
func (c *Config) Validate() error {
	if c.API.Listen == "" {
		return fmt.Errorf("api.listen is required")
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("api.rate_limit must be positive, got %d", c.API.RateLimit)
	}
	if c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("api.rate_limit_window must be positive, got %s", c.API.RateLimitWindow)
	}
	if c.API.ShutdownTimeout <= 0 {
		return fmt.Errorf("api.shutdown_timeout must be positive, got %s", c.API.ShutdownTimeout)
	}

	if c.Bluetooth.Adapter == "" {
		return fmt.Errorf("bluetooth.adapter is required")
	}
	if c.Bluetooth.DiscoveryWindow <= 0 {
		return fmt.Errorf("bluetooth.discovery_window must be positive, got %s", c.Bluetooth.DiscoveryWindow)
	}
	if c.Bluetooth.ConnectTimeout <= 0 {
		return fmt.Errorf("bluetooth.connect_timeout must be positive, got %s", c.Bluetooth.ConnectTimeout)
	}

	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.base_url %q is not a valid URL", c.Remote.BaseURL)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %s", c.Remote.Timeout)
	}
	if c.Remote.ProbeInterval <= 0 {
		return fmt.Errorf("remote.probe_interval must be positive, got %s", c.Remote.ProbeInterval)
	}
	if c.Remote.RatePerSec <= 0 {
		return fmt.Errorf("remote.rate_per_sec must be positive, got %g", c.Remote.RatePerSec)
	}
	if c.Remote.Burst <= 0 {
		return fmt.Errorf("remote.burst must be positive, got %d", c.Remote.Burst)
	}

	if c.Tracking.ShortSessionCutoff <= 0 {
		return fmt.Errorf("tracking.short_session_cutoff must be positive, got %s", c.Tracking.ShortSessionCutoff)
	}
	if c.Tracking.LiveGapMin <= 0 {
		return fmt.Errorf("tracking.live_gap_min must be positive, got %s", c.Tracking.LiveGapMin)
	}
	if c.Tracking.LiveGapMax <= c.Tracking.LiveGapMin {
		return fmt.Errorf("tracking.live_gap_max (%s) must exceed live_gap_min (%s)",
			c.Tracking.LiveGapMax, c.Tracking.LiveGapMin)
	}
	if c.Tracking.Lookback <= 0 {
		return fmt.Errorf("tracking.lookback must be positive, got %s", c.Tracking.Lookback)
	}
	for k := range c.Tracking.Mappings {
		face, err := strconv.ParseUint(k, 10, 8)
		if err != nil {
			return fmt.Errorf("tracking.mappings key %q is not a face identifier", k)
		}
		// Face 0 is the flat orientation and can never carry an activity.
		if face == 0 {
			return fmt.Errorf("tracking.mappings key 0 is reserved for the flat orientation")
		}
	}

	if c.Notify.Spacing < 0 {
		return fmt.Errorf("notify.spacing must not be negative, got %s", c.Notify.Spacing)
	}

	if !c.Registry.InMemory && c.Registry.Path == "" {
		return fmt.Errorf("registry.path is required unless registry.in_memory is set")
	}
	if c.Registry.AuditRetention <= 0 {
		return fmt.Errorf("registry.audit_retention must be positive, got %s", c.Registry.AuditRetention)
	}

	return nil
}
