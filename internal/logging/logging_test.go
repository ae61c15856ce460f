package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("ipc")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("connected", "endpoint", `\\.\pipe\displayhelper`)

	out := buf.String()
	if strings.Contains(out, `msg="INFO connected`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=connected") {
		t.Fatalf("expected plain connected message, got: %s", out)
	}
	if !strings.Contains(out, "component=ipc") {
		t.Fatalf("expected component field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("ipc")

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

func TestInitSwitchesJSONFormat(t *testing.T) {
	logger := L("statemachine")

	var buf bytes.Buffer
	Init("json", "info", &buf)

	logger.Info("transitioned", "state", "Waiting")

	out := buf.String()
	if !strings.Contains(out, `"component":"statemachine"`) {
		t.Fatalf("expected json component field, got: %s", out)
	}
	if !strings.Contains(out, `"msg":"transitioned"`) {
		t.Fatalf("expected json msg field, got: %s", out)
	}
}
