package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

func TestLoggerIncludesCorrelationIDAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Debug: DebugFull, Service: "constellation"})

	ctx := ports.WithCorrelationID(context.Background(), "abc123")
	logger.Info(ctx, "resolved node", "node", "y")

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log output, got empty string")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("failed to parse log line %q: %v", line, err)
	}
	if payload["service"] != "constellation" {
		t.Fatalf("expected service field, got %v", payload["service"])
	}
	if payload["correlation_id"] != "abc123" {
		t.Fatalf("expected correlation_id, got %v", payload["correlation_id"])
	}
	if payload["node"] != "y" {
		t.Fatalf("expected node field, got %v", payload["node"])
	}
	if payload["message"] != "resolved node" {
		t.Fatalf("expected message field, got %v", payload["message"])
	}
}

func TestLoggerWithAddsPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Writer: &buf, Debug: DebugFull})
	derived := base.With("execution_id", "exec-1")

	derived.Warn(context.Background(), "module retried")

	var payload map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if payload["execution_id"] != "exec-1" {
		t.Fatalf("expected execution_id from With, got %v", payload["execution_id"])
	}
}

func TestDebugOffSuppressesOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Debug: DebugOff})

	logger.Error(context.Background(), "should not appear")

	if buf.Len() != 0 {
		t.Fatalf("expected no output with DebugOff, got %q", buf.String())
	}
}

func TestDebugErrorsSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Debug: DebugErrors})

	logger.Info(context.Background(), "suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at DebugErrors level, got %q", buf.String())
	}

	logger.Warn(context.Background(), "visible")
	if buf.Len() == 0 {
		t.Fatal("expected warn output at DebugErrors level")
	}
}

func TestSettingFromEnvDefaultsToErrors(t *testing.T) {
	t.Setenv("CONSTELLATION_DEBUG", "")
	if got := SettingFromEnv(); got != DebugErrors {
		t.Fatalf("SettingFromEnv() = %v, want DebugErrors", got)
	}

	t.Setenv("CONSTELLATION_DEBUG", "full")
	if got := SettingFromEnv(); got != DebugFull {
		t.Fatalf("SettingFromEnv() = %v, want DebugFull", got)
	}
}

var _ ports.Logger = (*Logger)(nil)
