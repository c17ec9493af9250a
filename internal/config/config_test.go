// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Registry.InMemory = true
	cfg.Registry.Path = ""
	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestDefaultValues(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Tracking.ShortSessionCutoff != 10*time.Second {
		t.Errorf("short_session_cutoff default = %s, want 10s", cfg.Tracking.ShortSessionCutoff)
	}
	if cfg.Tracking.LiveGapMin != 20*time.Second {
		t.Errorf("live_gap_min default = %s, want 20s", cfg.Tracking.LiveGapMin)
	}
	if cfg.Tracking.LiveGapMax != 60*time.Second {
		t.Errorf("live_gap_max default = %s, want 60s", cfg.Tracking.LiveGapMax)
	}
	if cfg.Tracking.Lookback != 24*time.Hour {
		t.Errorf("lookback default = %s, want 24h", cfg.Tracking.Lookback)
	}
	if cfg.Bluetooth.DiscoveryWindow != 10*time.Second {
		t.Errorf("discovery_window default = %s, want 10s", cfg.Bluetooth.DiscoveryWindow)
	}
	if cfg.Notify.Spacing != 5*time.Second {
		t.Errorf("notify spacing default = %s, want 5s", cfg.Notify.Spacing)
	}
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("remote timeout default = %s, want 30s", cfg.Remote.Timeout)
	}
	if !strings.HasPrefix(cfg.API.Listen, "127.0.0.1") {
		t.Errorf("api listen default = %s, want loopback", cfg.API.Listen)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing api listen",
			mutate:  func(c *Config) { c.API.Listen = "" },
			wantErr: "api.listen",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.API.RateLimit = 0 },
			wantErr: "api.rate_limit",
		},
		{
			name:    "missing adapter",
			mutate:  func(c *Config) { c.Bluetooth.Adapter = "" },
			wantErr: "bluetooth.adapter",
		},
		{
			name:    "zero discovery window",
			mutate:  func(c *Config) { c.Bluetooth.DiscoveryWindow = 0 },
			wantErr: "bluetooth.discovery_window",
		},
		{
			name:    "missing remote url",
			mutate:  func(c *Config) { c.Remote.BaseURL = "" },
			wantErr: "remote.base_url",
		},
		{
			name:    "malformed remote url",
			mutate:  func(c *Config) { c.Remote.BaseURL = "not a url" },
			wantErr: "remote.base_url",
		},
		{
			name:    "zero remote timeout",
			mutate:  func(c *Config) { c.Remote.Timeout = 0 },
			wantErr: "remote.timeout",
		},
		{
			name:    "zero short session cutoff",
			mutate:  func(c *Config) { c.Tracking.ShortSessionCutoff = 0 },
			wantErr: "short_session_cutoff",
		},
		{
			name: "gap window inverted",
			mutate: func(c *Config) {
				c.Tracking.LiveGapMin = time.Minute
				c.Tracking.LiveGapMax = 20 * time.Second
			},
			wantErr: "live_gap_max",
		},
		{
			name:    "gap min zero",
			mutate:  func(c *Config) { c.Tracking.LiveGapMin = 0 },
			wantErr: "live_gap_min",
		},
		{
			name:    "mapping key not numeric",
			mutate:  func(c *Config) { c.Tracking.Mappings = map[string]string{"work": "Deep work"} },
			wantErr: "mappings",
		},
		{
			name:    "mapping key zero",
			mutate:  func(c *Config) { c.Tracking.Mappings = map[string]string{"0": "Flat"} },
			wantErr: "reserved",
		},
		{
			name:    "negative notify spacing",
			mutate:  func(c *Config) { c.Notify.Spacing = -time.Second },
			wantErr: "notify.spacing",
		},
		{
			name: "registry path required",
			mutate: func(c *Config) {
				c.Registry.InMemory = false
				c.Registry.Path = ""
			},
			wantErr: "registry.path",
		},
		{
			name:    "zero audit retention",
			mutate:  func(c *Config) { c.Registry.AuditRetention = 0 },
			wantErr: "audit_retention",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFaceMappings(t *testing.T) {
	t.Parallel()

	tracking := TrackingConfig{
		Mappings: map[string]string{
			"1": "Deep work",
			"2": "Meetings",
			"5": "Email",
			"7": "", // untracked
		},
	}

	m := tracking.FaceMappings()
	if len(m) != 3 {
		t.Fatalf("expected 3 tracked faces, got %d: %v", len(m), m)
	}
	if m[1] != "Deep work" || m[2] != "Meetings" || m[5] != "Email" {
		t.Errorf("unexpected mapping contents: %v", m)
	}
	if _, ok := m[7]; ok {
		t.Error("empty description should mean untracked")
	}
}

func TestMappedFacesSorted(t *testing.T) {
	t.Parallel()

	tracking := TrackingConfig{
		Mappings: map[string]string{
			"5": "Email",
			"1": "Deep work",
			"3": "Review",
		},
	}

	faces := tracking.MappedFaces()
	want := []uint8{1, 3, 5}
	if len(faces) != len(want) {
		t.Fatalf("expected %d faces, got %d", len(want), len(faces))
	}
	for i, f := range want {
		if faces[i] != f {
			t.Errorf("faces[%d] = %d, want %d", i, faces[i], f)
		}
	}
}
