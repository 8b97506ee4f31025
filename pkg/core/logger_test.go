package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"off", LogLevelSilent},
		{"", LogLevelInfo},
		{"bogus", LogLevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultLogger_LevelFiltering(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	l := NewDefaultLogger("scanwatch", LogLevelWarn)
	l.SetOutput(&buf)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[scanwatch] [WARN] warn 3") {
		t.Errorf("missing warn line, got %q", out)
	}
	if !strings.Contains(out, "[scanwatch] [ERROR] error 4") {
		t.Errorf("missing error line, got %q", out)
	}
}

func TestDefaultLogger_With(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	l := NewDefaultLogger("scanwatch", LogLevelDebug)
	l.SetOutput(&buf)

	l.With("poller").Info("tick")

	if !strings.Contains(buf.String(), "[scanwatch/poller] [INFO] tick") {
		t.Errorf("nested prefix missing, got %q", buf.String())
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(*NopLogger); !ok {
		t.Error("OrNop(nil) should return a NopLogger")
	}
	l := NewDefaultLogger("", LogLevelInfo)
	if OrNop(l) != Logger(l) {
		t.Error("OrNop should return the given logger")
	}
}
