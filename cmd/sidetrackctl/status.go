// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nollvik/sidetrackd/internal/ble"
	"github.com/nollvik/sidetrackd/internal/tracker"
)

// statusView mirrors the daemon's /api/v1/status payload.
type statusView struct {
	Version  string         `json:"version"`
	Uptime   float64        `json:"uptime_seconds"`
	Link     ble.Status     `json:"link"`
	Tracking tracker.Status `json:"tracking"`
	Remote   struct {
		Reachable bool   `json:"reachable"`
		Breaker   string `json:"breaker,omitempty"`
	} `json:"remote"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, link and session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().get(cmd.Context(), "/status")
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var view statusView
		if err := decodeInto(raw, &view); err != nil {
			return err
		}

		cmd.Printf("Daemon:   v%s, up %s\n", view.Version, formatUptime(view.Uptime))

		cmd.Printf("Link:     %s", view.Link.State)
		if view.Link.Address != "" {
			cmd.Printf(", %s", view.Link.Address)
			if view.Link.Name != "" {
				cmd.Printf(" (%s)", view.Link.Name)
			}
		}
		if view.Link.State == ble.StateConnected && view.Link.BatteryPercent > 0 {
			cmd.Printf(", battery %d%%", view.Link.BatteryPercent)
		}
		if view.Link.ReconnectAttempts > 0 {
			cmd.Printf(", %d reconnect attempts", view.Link.ReconnectAttempts)
		}
		if !view.Link.AdapterPowered {
			cmd.Printf(", adapter off")
		}
		cmd.Println()

		if view.Tracking.Tracking && view.Tracking.Session != nil {
			s := view.Tracking.Session
			cmd.Printf("Tracking: %q (face %d), since %s\n",
				s.Activity, s.Face, formatSince(s.StartedAt))
		} else {
			cmd.Printf("Tracking: idle (face %d)\n", view.Tracking.LastFace)
		}

		cmd.Printf("Remote:   ")
		if view.Remote.Reachable {
			cmd.Printf("reachable")
		} else {
			cmd.Printf("unreachable")
		}
		if view.Remote.Breaker != "" && view.Remote.Breaker != "closed" {
			cmd.Printf(", breaker %s", view.Remote.Breaker)
		}
		if view.Tracking.BufferDepth > 0 {
			cmd.Printf(", %d entries buffered", view.Tracking.BufferDepth)
		}
		cmd.Println()

		cmd.Printf("Sessions: %d opened", view.Tracking.SessionsOpened)
		if view.Tracking.LastOutcome != "" {
			cmd.Printf(", last close %s", view.Tracking.LastOutcome)
		}
		cmd.Println()
		return nil
	},
}

// formatUptime renders seconds as a compact duration.
func formatUptime(seconds float64) string {
	return (time.Duration(seconds) * time.Second).String()
}

// formatSince renders a start time plus how long ago it was.
func formatSince(t time.Time) string {
	ago := time.Since(t).Round(time.Second)
	return fmt.Sprintf("%s (%s ago)", t.Local().Format("15:04:05"), ago)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
