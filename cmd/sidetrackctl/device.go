// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package main

import (
	"github.com/spf13/cobra"

	"github.com/nollvik/sidetrackd/internal/ble"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan for nearby tracking dice",
	Long: `Discover runs one scan window on the daemon and lists matching
devices. The command blocks for the daemon's configured discovery
window, ten seconds by default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().post(cmd.Context(), "/device/discover", nil)
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var result struct {
			Devices []ble.Discovered `json:"devices"`
			Count   int              `json:"count"`
		}
		if err := decodeInto(raw, &result); err != nil {
			return err
		}

		if result.Count == 0 {
			cmd.Println("no devices found")
			return nil
		}
		cmd.Printf("%-20s %-24s %s\n", "ADDRESS", "NAME", "RSSI")
		for _, d := range result.Devices {
			cmd.Printf("%-20s %-24s %d\n", d.Address, d.Name, d.RSSI)
		}
		return nil
	},
}

var pairCmd = &cobra.Command{
	Use:   "pair <address> [name]",
	Short: "Pair with a tracking die by Bluetooth address",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"address": args[0]}
		if len(args) > 1 {
			body["name"] = args[1]
		}

		raw, err := newClient().post(cmd.Context(), "/device/pair", body)
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		cmd.Printf("paired with %s, connecting in background\n", args[0])
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Forget the paired tracking die",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().post(cmd.Context(), "/device/forget", nil)
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		cmd.Println("device forgotten")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(forgetCmd)
}
