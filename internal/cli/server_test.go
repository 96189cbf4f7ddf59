package cli

import (
	"context"
	"path/filepath"
	"testing"

	"quizgen/internal/config"
	"quizgen/internal/infra/ai"
	"quizgen/internal/infra/memory"
	"quizgen/internal/infra/sqlite"
)

func TestNewGeneratorByProvider(t *testing.T) {
	cfg := config.Config{}
	gen, err := newGenerator(cfg)
	if err != nil {
		t.Fatalf("static generator: %v", err)
	}
	if _, ok := gen.(*ai.StaticGenerator); !ok {
		t.Fatalf("expected the static generator by default, got %T", gen)
	}

	cfg.AI.Provider = config.ProviderOpenAI
	if _, err := newGenerator(cfg); err == nil {
		t.Fatalf("expected an error without an OpenAI key")
	}

	cfg.AI.Provider = config.ProviderAnthropic
	cfg.AI.APIKey = "sk-ant-test"
	gen, err = newGenerator(cfg)
	if err != nil {
		t.Fatalf("anthropic generator: %v", err)
	}
	if _, ok := gen.(*ai.AnthropicGenerator); !ok {
		t.Fatalf("expected the anthropic generator, got %T", gen)
	}

	cfg.AI.Provider = "groq"
	if _, err := newGenerator(cfg); err == nil {
		t.Fatalf("expected an error for an unknown provider")
	}
}

func TestOpenStoreFallsBack(t *testing.T) {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, config.Config{})
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	closeStore()
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected the memory store, got %T", store)
	}

	cfg := config.Config{}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "quiz.db")
	store, closeStore, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected the sqlite store, got %T", store)
	}
}
