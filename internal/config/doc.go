// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package config loads and validates the daemon configuration.
//
// Configuration is layered with Koanf v2, later layers overriding earlier
// ones:
//
//  1. Built-in defaults (struct provider)
//  2. Optional YAML config file (first match in DefaultConfigPaths, or
//     SIDETRACK_CONFIG)
//  3. Environment variables (SIDETRACK_* via an explicit transform map)
//
// The loaded Config is immutable; live reload is opt-in through
// WatchConfigFile, which re-runs the full load and hands the new Config to
// the callback. Only the tracking section (face mappings and thresholds) is
// expected to change at runtime; components that honor reloads pull those
// fields from the replacement Config.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Cannot load configuration")
//	}
//	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
package config
