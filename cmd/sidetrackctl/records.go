// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nollvik/sidetrackd/internal/registry"
	"github.com/nollvik/sidetrackd/internal/remote"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List the face-to-activity mappings in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().get(cmd.Context(), "/mappings")
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var result struct {
			Mappings map[uint8]string `json:"mappings"`
			Count    int              `json:"count"`
		}
		if err := decodeInto(raw, &result); err != nil {
			return err
		}

		if result.Count == 0 {
			cmd.Println("no faces mapped")
			return nil
		}

		faces := make([]int, 0, len(result.Mappings))
		for face := range result.Mappings {
			faces = append(faces, int(face))
		}
		sort.Ints(faces)

		for _, face := range faces {
			cmd.Printf("face %2d -> %s\n", face, result.Mappings[uint8(face)])
		}
		return nil
	},
}

var bufferCmd = &cobra.Command{
	Use:   "buffer",
	Short: "List time entries waiting for the remote service",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().get(cmd.Context(), "/buffer")
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var result struct {
			Entries []remote.TimeEntry `json:"entries"`
			Depth   int                `json:"depth"`
		}
		if err := decodeInto(raw, &result); err != nil {
			return err
		}

		if result.Depth == 0 {
			cmd.Println("buffer empty")
			return nil
		}

		cmd.Printf("%d buffered entries (oldest first):\n", result.Depth)
		for _, e := range result.Entries {
			cmd.Printf("  %s  %-20s %s\n", e.Key, e.Label, formatWindow(e.T1, e.T2))
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submission attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("/history?limit=%d", historyLimit)
		raw, err := newClient().get(cmd.Context(), path)
		if err != nil {
			return err
		}
		if flagJSON {
			cmd.Println(string(raw))
			return nil
		}

		var result struct {
			Records []registry.AuditRecord `json:"records"`
			Count   int                    `json:"count"`
		}
		if err := decodeInto(raw, &result); err != nil {
			return err
		}

		if result.Count == 0 {
			cmd.Println("no submissions recorded")
			return nil
		}

		for _, rec := range result.Records {
			marker := " "
			if rec.Hidden {
				marker = "h"
			}
			cmd.Printf("%s %s %s  %-20s %-26s %s\n",
				rec.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
				marker, rec.Key, rec.Label, formatWindow(rec.T1, rec.T2), rec.Outcome)
		}
		return nil
	},
}

// formatWindow renders a [t1, t2] unix second pair as start plus length.
func formatWindow(t1, t2 int64) string {
	start := time.Unix(t1, 0).Local().Format("15:04:05")
	length := time.Duration(t2-t1) * time.Second
	return fmt.Sprintf("[%s +%s]", start, length)
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum records to return (1-1000)")
	rootCmd.AddCommand(mappingsCmd)
	rootCmd.AddCommand(bufferCmd)
	rootCmd.AddCommand(historyCmd)
}
