// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, Timestamp: true})

	Info().Str("component", "test").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("Expected level field, got %q", out)
	}
	if !strings.Contains(out, `"component":"test"`) {
		t.Errorf("Expected component field, got %q", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("Expected message field, got %q", out)
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	Debug().Msg("dropped")
	Info().Msg("dropped")
	Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("Expected sub-warn messages to be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("Expected warn message to pass, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"FATAL", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestWith_ChildLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})

	child := With().Str("component", "cache").Logger()
	child.Info().Msg("child message")

	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Errorf("Expected child logger field, got %q", buf.String())
	}
}
