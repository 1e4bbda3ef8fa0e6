package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("symbolscan")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("resolved symbol", "library", "libcompositor.so")

	out := buf.String()
	if strings.Contains(out, `msg="INFO resolved symbol`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=\"resolved symbol\"") {
		t.Fatalf("expected plain message, got: %s", out)
	}
	if !strings.Contains(out, "component=symbolscan") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "library=libcompositor.so") {
		t.Fatalf("expected library field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("symbolscan")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}
