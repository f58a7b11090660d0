package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestInitSetsGlobalLevel(t *testing.T) {
	if err := Init(Config{Level: "warn", Environment: "production"}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", zerolog.GlobalLevel())
	}
}

func TestInitFallsBackOnBadLevel(t *testing.T) {
	if err := Init(Config{Level: "shouting", Environment: "test"}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", zerolog.GlobalLevel())
	}
}
