// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package services

import (
	"context"
	"fmt"
)

// StartStopRunner matches the reachability prober's lifecycle: Start
// launches a background loop bound to ctx, Stop blocks until the loop
// has exited.
type StartStopRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// ProbeService runs the remote reachability prober under supervision.
type ProbeService struct {
	runner StartStopRunner
	name   string
}

// NewProbeService wraps the prober as a supervised service.
func NewProbeService(runner StartStopRunner) *ProbeService {
	return &ProbeService{
		runner: runner,
		name:   "reachability-probe",
	}
}

// Serve starts the probe loop, blocks until the context is canceled,
// then stops it. Stop waits for the loop goroutine, so by the time
// Serve returns nothing is left running.
func (s *ProbeService) Serve(ctx context.Context) error {
	if err := s.runner.Start(ctx); err != nil {
		return fmt.Errorf("probe start failed: %w", err)
	}

	<-ctx.Done()

	s.runner.Stop()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *ProbeService) String() string {
	return s.name
}
