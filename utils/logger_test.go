package utils

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func TestLoggerWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, false)

	l.Info("loaded %d rows", 12)
	l.Warn("unknown brand %q", "Lada")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "loaded 12 rows") {
		t.Errorf("info line missing from %q", out)
	}
	if !strings.Contains(out, `unknown brand "Lada"`) {
		t.Errorf("warn line missing from %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered at info level: %q", out)
	}
}

func TestLoggerDebugToggle(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, false)
	l.SetDebug(true)
	l.Debug("distance %.2f", 1.5)

	if !strings.Contains(buf.String(), "distance 1.50") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}

// capture swaps *f for a pipe while fn runs and returns what was written.
func capture(t *testing.T, f **os.File, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := *f
	*f = w
	defer func() { *f = orig }()

	fn()
	w.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	return string(b)
}

func TestNewLoggerKeepsStdoutClean(t *testing.T) {
	var stderr string
	stdout := capture(t, &os.Stdout, func() {
		stderr = capture(t, &os.Stderr, func() {
			l := NewLogger()
			l.Info("saved bundle %s", "01J")
			l.Warn("unknown model")
			l.Error("write failed")
		})
	})

	if stdout != "" {
		t.Errorf("stdout should carry no log lines, got %q", stdout)
	}
	for _, want := range []string{"saved bundle 01J", "unknown model", "write failed"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q: %q", want, stderr)
		}
	}
}
