package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	fields := toFields([]any{"match_id", "m1", "error", errors.New("boom"), "dangling"})
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[0].Key != "match_id" {
		t.Fatalf("unexpected first field key: %s", fields[0].Key)
	}
	if fields[1].Type != zapcore.ErrorType {
		t.Fatalf("expected error field, got type %v", fields[1].Type)
	}
	if fields[2].Key != "dangling" {
		t.Fatalf("unexpected dangling field key: %s", fields[2].Key)
	}
}

func TestMirrorReceivesEntries(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core))

	var gotMsg string
	var gotLevel Level
	SetMirror(func(_ context.Context, level Level, msg string, _ ...any) {
		gotLevel = level
		gotMsg = msg
	})
	defer SetMirror(nil)

	logger.InfoContext(context.Background(), "heartbeat accepted", "tracker_id", "tracker-1")

	if gotMsg != "heartbeat accepted" {
		t.Fatalf("mirror did not receive entry, got %q", gotMsg)
	}
	if gotLevel != LevelInfo {
		t.Fatalf("unexpected mirrored level: %v", gotLevel)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored")
	if err := logger.Sync(); err != nil {
		t.Fatalf("nil logger sync: %v", err)
	}
	if logger.Zap() == nil {
		t.Fatal("expected nop zap logger")
	}
}
