// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package services

import (
	"context"
)

// Runner matches components whose main loop is already suture-shaped:
// Serve blocks until the context is canceled and returns ctx.Err() on a
// clean shutdown. The link manager, session engine, notification
// sequencer, event hub and event forwarder all satisfy it.
type Runner interface {
	Serve(ctx context.Context) error
}

// RunnerService registers a Runner under a stable name so supervisor
// logs identify it by role rather than by its Go type.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService wraps runner as a named supervised service.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{
		runner: runner,
		name:   name,
	}
}

// Serve delegates to the wrapped component's main loop.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Serve(ctx)
}

// String names the service in supervisor logs.
func (s *RunnerService) String() string {
	return s.name
}
