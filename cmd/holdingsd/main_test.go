package main

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/efreitasn/holdingsledger/internal/config"
	"github.com/efreitasn/holdingsledger/internal/store"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		logger, err := newLogger(tt.level)
		if err != nil {
			t.Fatalf("newLogger(%q): %v", tt.level, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("newLogger(%q) does not log at %v", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("newLogger(%q) logs below %v", tt.level, tt.want)
		}
	}

	if _, err := newLogger("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOpenBackend_DefaultsToMemory(t *testing.T) {
	backend, closeFn, err := openBackend(context.Background(), &config.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if _, ok := backend.(*store.MemoryStore); !ok {
		t.Errorf("expected *store.MemoryStore, got %T", backend)
	}
}
