// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package main

import (
	"github.com/spf13/cobra"

	"github.com/nollvik/sidetrackd/internal/tracker"
)

var trackingCmd = &cobra.Command{
	Use:   "tracking",
	Short: "Show the current tracking session",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().get(cmd.Context(), "/tracking")
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var result struct {
			Tracking bool             `json:"tracking"`
			Session  *tracker.Session `json:"session,omitempty"`
		}
		if err := decodeInto(raw, &result); err != nil {
			return err
		}

		if !result.Tracking || result.Session == nil {
			cmd.Println("no active session")
			return nil
		}

		s := result.Session
		cmd.Printf("Activity: %s\n", s.Activity)
		cmd.Printf("Face:     %d\n", s.Face)
		cmd.Printf("Key:      %s\n", s.ActivityKey)
		cmd.Printf("Started:  %s\n", formatSince(s.StartedAt))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Close the current tracking session",
	Long: `Stop closes the open session as if the die had been set flat.
The entry is submitted to the remote service, or buffered when it is
unreachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().post(cmd.Context(), "/tracking/stop", nil)
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var result struct {
			Outcome string `json:"outcome"`
		}
		if err := decodeInto(raw, &result); err != nil {
			return err
		}

		cmd.Printf("session closed: %s\n", result.Outcome)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trackingCmd)
	rootCmd.AddCommand(stopCmd)
}
