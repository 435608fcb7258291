package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kgtext/backend/pkg/logger/console"
)

func TestLogger_NoopBeforeInit(t *testing.T) {
	mu.Lock()
	singleton = nil
	mu.Unlock()

	// Must not panic.
	Info("hello", "k", "v")
	Debug("hello")
}

func TestLogger_FansOutToBackends(t *testing.T) {
	var a, b bytes.Buffer
	Init(
		console.NewConsoleLogger(console.ConsoleLoggerParams{Output: &a}),
		console.NewConsoleLogger(console.ConsoleLoggerParams{Output: &b, Debug: true}),
	)
	t.Cleanup(func() {
		mu.Lock()
		singleton = nil
		mu.Unlock()
	})

	Info("graph saved", "graph_id", "g1")
	Debug("details")

	if !strings.Contains(a.String(), "graph saved") || !strings.Contains(a.String(), "graph_id=g1") {
		t.Fatalf("backend a missing info line: %q", a.String())
	}
	if strings.Contains(a.String(), "details") {
		t.Fatalf("backend a should not log debug: %q", a.String())
	}
	if !strings.Contains(b.String(), "details") {
		t.Fatalf("backend b missing debug line: %q", b.String())
	}
}
