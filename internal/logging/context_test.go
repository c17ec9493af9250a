// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Errorf("expected unique correlation IDs, got duplicates: %s", id1)
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty correlation ID from bare context, got %q", got)
	}

	ctx = ContextWithCorrelationID(ctx, "abc12345")
	if got := CorrelationIDFromContext(ctx); got != "abc12345" {
		t.Errorf("expected 'abc12345', got %q", got)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID from bare context, got %q", got)
	}

	id := GenerateRequestID()
	ctx = ContextWithRequestID(ctx, id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("expected %q, got %q", id, got)
	}
}

func TestCtxIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer

	ctx := context.Background()
	ctx = ContextWithLogger(ctx, NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "corr1234")
	ctx = ContextWithRequestID(ctx, "req-id-1")

	Ctx(ctx).Info().Msg("with fields")

	output := buf.String()
	if !strings.Contains(output, "corr1234") {
		t.Errorf("expected correlation_id in output: %s", output)
	}
	if !strings.Contains(output, "req-id-1") {
		t.Errorf("expected request_id in output: %s", output)
	}
	if !strings.Contains(output, "with fields") {
		t.Errorf("expected message in output: %s", output)
	}
}

func TestCtxShorthands(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "shorthand")

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"CtxInfo", func() { CtxInfo(ctx).Msg("m") }, `"level":"info"`},
		{"CtxWarn", func() { CtxWarn(ctx).Msg("m") }, `"level":"warn"`},
		{"CtxErr", func() { CtxErr(ctx, errTest).Msg("m") }, `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()
			output := buf.String()
			if !strings.Contains(output, tt.level) {
				t.Errorf("expected %s in output: %s", tt.level, output)
			}
			if !strings.Contains(output, "shorthand") {
				t.Errorf("expected correlation_id in output: %s", output)
			}
		})
	}
}

var errTest = &testError{msg: "boom"}

func TestLoggerFromContextFallsBack(t *testing.T) {
	// Without a stored logger the global logger is returned; just confirm
	// it produces output rather than panicking.
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	logger := LoggerFromContext(context.Background())
	logger.Info().Msg("fallback")

	if !strings.Contains(buf.String(), "fallback") {
		t.Errorf("expected fallback message in output: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	logger := WithComponent("tracker")
	logger.Info().Msg("component log")

	output := buf.String()
	if !strings.Contains(output, `"component":"tracker"`) {
		t.Errorf("expected component field in output: %s", output)
	}
}
