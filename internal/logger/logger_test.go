package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger(WithWriter(&buf), WithName("autoroute"))
	l.Debug("hidden")
	l.Info("loaded package", "handlers", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line at info level:\n%s", out)
	}
	if !strings.Contains(out, "loaded package") || !strings.Contains(out, "handlers=2") || !strings.Contains(out, "logger=autoroute") {
		t.Errorf("missing info line:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colour written to a non-terminal:\n%s", out)
	}

	buf.Reset()
	dbg := NewLogger(WithWriter(&buf), WithLevel(LevelDebug))
	if !dbg.Enabled(context.Background(), slog.LevelDebug) || dbg.Level() != LevelDebug {
		t.Fatalf("debug not enabled")
	}
	dbg.Named("emit").Debug("rendered")
	if !strings.Contains(buf.String(), "rendered") || !strings.Contains(buf.String(), "logger=emit") {
		t.Errorf("named child:\n%s", buf.String())
	}
}

func TestNewHandlerOptions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := NewHandlerOptions(&buf, LevelWarn, WithTimeFormat(time.Kitchen))
	if !opts.NoColor || opts.TimeFormat != time.Kitchen || opts.Level.Level() != slog.LevelWarn {
		t.Errorf("options: %+v", opts)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]Level{"debug": LevelDebug, " INFO ": LevelInfo, "": LevelInfo, "warning": LevelWarn, "error": LevelError}
	for in, want := range tests {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Errorf("expected unknown level to fail")
	}
}
