// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/thejerf/suture/v4"
)

type blockingRunner struct {
	served chan struct{}
	err    error
}

func (r *blockingRunner) Serve(ctx context.Context) error {
	close(r.served)
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerServiceInterface(t *testing.T) {
	var _ suture.Service = (*RunnerService)(nil)
}

func TestRunnerServiceDelegates(t *testing.T) {
	runner := &blockingRunner{served: make(chan struct{})}
	svc := NewRunnerService("link-manager", runner)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	<-runner.served
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunnerServicePropagatesFailure(t *testing.T) {
	serveErr := errors.New("bus closed")
	runner := &blockingRunner{served: make(chan struct{}), err: serveErr}
	svc := NewRunnerService("session-engine", runner)

	if err := svc.Serve(context.Background()); !errors.Is(err, serveErr) {
		t.Errorf("expected serve error, got %v", err)
	}
}

func TestRunnerServiceString(t *testing.T) {
	svc := NewRunnerService("notification-sequencer", &blockingRunner{served: make(chan struct{})})
	if svc.String() != "notification-sequencer" {
		t.Errorf("expected 'notification-sequencer', got %q", svc.String())
	}
}
