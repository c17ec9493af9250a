// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "sidetrackd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

const testYAML = `
log:
  level: debug
remote:
  base_url: https://track.internal:8443
  token: secret-token
tracking:
  short_session_cutoff: 15s
  mappings:
    1: "Deep work"
    2: "Meetings"
registry:
  in_memory: true
  path: ""
`

func TestLoadFileAppliesYAMLOverDefaults(t *testing.T) {
	path := writeTempConfig(t, testYAML)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Remote.BaseURL != "https://track.internal:8443" {
		t.Errorf("remote.base_url = %s, want override", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Token != "secret-token" {
		t.Errorf("remote.token = %s, want secret-token", cfg.Remote.Token)
	}
	if cfg.Tracking.ShortSessionCutoff != 15*time.Second {
		t.Errorf("short_session_cutoff = %s, want 15s", cfg.Tracking.ShortSessionCutoff)
	}

	// Untouched sections keep their defaults.
	if cfg.Tracking.LiveGapMin != 20*time.Second {
		t.Errorf("live_gap_min = %s, want default 20s", cfg.Tracking.LiveGapMin)
	}
	if cfg.Notify.Spacing != 5*time.Second {
		t.Errorf("notify.spacing = %s, want default 5s", cfg.Notify.Spacing)
	}

	m := cfg.Tracking.FaceMappings()
	if m[1] != "Deep work" || m[2] != "Meetings" {
		t.Errorf("face mappings not loaded from YAML: %v", m)
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile("/nonexistent/sidetrackd.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, testYAML)

	t.Setenv("SIDETRACK_LOG_LEVEL", "warn")
	t.Setenv("SIDETRACK_REMOTE_TIMEOUT", "45s")
	t.Setenv("SIDETRACK_TRACKING_GAP_MAX", "90s")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %s, want env override warn", cfg.Log.Level)
	}
	if cfg.Remote.Timeout != 45*time.Second {
		t.Errorf("remote.timeout = %s, want 45s", cfg.Remote.Timeout)
	}
	if cfg.Tracking.LiveGapMax != 90*time.Second {
		t.Errorf("live_gap_max = %s, want 90s", cfg.Tracking.LiveGapMax)
	}
}

func TestEnvCORSOriginsCommaSplit(t *testing.T) {
	path := writeTempConfig(t, testYAML)

	t.Setenv("SIDETRACK_API_CORS_ORIGINS", "http://localhost:3000, http://localhost:8413")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(cfg.API.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.API.CORSOrigins)
	}
	if cfg.API.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("first origin = %s, want trimmed value", cfg.API.CORSOrigins[0])
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"SIDETRACK_LOG_LEVEL", "log.level"},
		{"SIDETRACK_REMOTE_BASE_URL", "remote.base_url"},
		{"SIDETRACK_BT_ADAPTER", "bluetooth.adapter"},
		{"SIDETRACK_TRACKING_SHORT_CUTOFF", "tracking.short_session_cutoff"},
		{"SIDETRACK_NOTIFY_SPACING", "notify.spacing"},
		{"SIDETRACK_REGISTRY_PATH", "registry.path"},
		{"HOME", ""},       // unrelated env vars are skipped
		{"PATH", ""},       // unrelated env vars are skipped
		{"SIDETRACK_", ""}, // unknown sidetrack keys are skipped too
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := envTransformFunc(tt.in); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadRespectsConfigPathEnvVar(t *testing.T) {
	path := writeTempConfig(t, testYAML)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.Token != "secret-token" {
		t.Errorf("expected config from SIDETRACK_CONFIG path, got token %q", cfg.Remote.Token)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := writeTempConfig(t, `
remote:
  base_url: ""
registry:
  in_memory: true
`)

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation failure for empty remote.base_url")
	}
}
