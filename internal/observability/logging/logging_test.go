package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buf})

	logger.Info("should be dropped")
	logger.Warn("should be kept")

	output := buf.String()
	if strings.Contains(output, "should be dropped") {
		t.Fatalf("info entry logged at warn level: %s", output)
	}
	if !strings.Contains(output, "should be kept") {
		t.Fatalf("warn entry missing: %s", output)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "text", Writer: &buf})

	logger.Info("hello", "key", "value")

	line := buf.String()
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		t.Fatalf("expected text output, got JSON: %s", line)
	}
	if !strings.Contains(line, "key=value") {
		t.Fatalf("missing attribute in text output: %s", line)
	}
}

func TestNewDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	logger.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("msg = %v, want hello", entry["msg"])
	}
}

func TestWithContextAnnotatesIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithReelID(ctx, "reel-9")

	WithContext(ctx, logger).Info("annotated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("request_id = %v, want req-1", entry["request_id"])
	}
	if entry["reel_id"] != "reel-9" {
		t.Fatalf("reel_id = %v, want reel-9", entry["reel_id"])
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "   ")
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("blank request id should not be stored")
	}
	ctx = ContextWithReelID(ctx, "")
	if _, ok := ReelIDFromContext(ctx); ok {
		t.Fatal("blank reel id should not be stored")
	}
}

func TestLoggerFromContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Fatal("logger not returned from context")
	}
	if got := LoggerFromContext(context.Background()); got != nil {
		t.Fatal("expected nil logger for empty context")
	}
}
