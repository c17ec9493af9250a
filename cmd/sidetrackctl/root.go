// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagAddr    string
	flagToken   string
	flagTimeout time.Duration
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:     "sidetrackctl",
	Short:   "Control the sidetrackd tracking die daemon",
	Version: "1.0.0",
	Long: `Sidetrackctl talks to the sidetrackd daemon over its loopback
control API: pair and forget the tracking die, inspect the current
session, and review buffered and submitted time entries.`,
	SilenceUsage: true,
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr returns the environment variable's value, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr",
		envOr("SIDETRACK_CTL_ADDR", "http://127.0.0.1:8413"),
		"daemon API address")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token",
		os.Getenv("SIDETRACK_API_TOKEN"),
		"bearer token, required when the daemon has auth enabled")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout",
		30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false,
		"print the raw JSON payload instead of formatted output")
}
