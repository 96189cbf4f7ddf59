package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizgen/internal/domain"
)

func TestGameCacheCaches(t *testing.T) {
	store := NewStore()
	game, err := store.InsertGame(context.Background(), sampleGame())
	if err != nil {
		t.Fatalf("insert game: %v", err)
	}
	loader := &countingLoader{GameLoader: store}
	cache := NewGameCache(loader, time.Minute)

	if _, err := cache.GetGame(context.Background(), game.ID); err != nil {
		t.Fatalf("get game: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	got, err := cache.GetGame(context.Background(), game.ID)
	if err != nil {
		t.Fatalf("get game 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if got.Topic != "Arithmetic" || len(got.Questions) != 1 {
		t.Fatalf("unexpected cached game %+v", got)
	}
}

func TestGameCacheExpires(t *testing.T) {
	store := NewStore()
	game, _ := store.InsertGame(context.Background(), sampleGame())
	loader := &countingLoader{GameLoader: store}
	cache := NewGameCache(loader, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }
	_, _ = cache.GetGame(context.Background(), game.ID)

	now = now.Add(2 * time.Minute)
	_, _ = cache.GetGame(context.Background(), game.ID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestGameCachePrunesExpiredEntries(t *testing.T) {
	store := NewStore()
	first, _ := store.InsertGame(context.Background(), sampleGame())
	second, _ := store.InsertGame(context.Background(), sampleGame())
	cache := NewGameCache(store, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }
	_, _ = cache.GetGame(context.Background(), first.ID)

	now = now.Add(2 * time.Minute)
	if _, ok := cache.lookup(first.ID); ok {
		t.Fatalf("expected expired entry to miss")
	}
	cache.mu.RLock()
	_, stale := cache.cache[first.ID]
	cache.mu.RUnlock()
	if stale {
		t.Fatalf("expected expired entry to be removed on miss")
	}

	_, _ = cache.GetGame(context.Background(), first.ID)
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetGame(context.Background(), second.ID)
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	if _, ok := cache.cache[first.ID]; ok {
		t.Fatalf("expected storing a new entry to sweep expired ones")
	}
	if len(cache.cache) != 1 {
		t.Fatalf("expected only %s cached, got %d entries", second.ID, len(cache.cache))
	}
}

func TestGameCacheDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{GameLoader: NewStore()}
	cache := NewGameCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetGame(context.Background(), "nope00"); !errors.Is(err, domain.ErrGameNotFound) {
			t.Fatalf("expected ErrGameNotFound, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected misses to reach the loader, got %d calls", loader.calls)
	}
}

type countingLoader struct {
	GameLoader
	calls int
}

func (l *countingLoader) LoadGame(ctx context.Context, gameID string) (domain.Game, error) {
	l.calls++
	return l.GameLoader.LoadGame(ctx, gameID)
}

func sampleGame() domain.Game {
	return domain.Game{
		Topic:         "Arithmetic",
		Language:      "english",
		QuestionCount: 1,
		OwnerID:       "owner1",
		Questions: []domain.Question{
			{
				Text:        "What is 2 + 2?",
				Options:     []string{"3", "4", "5", "6"},
				RightAnswer: domain.RightAnswer{Index: 2, Text: "4"},
			},
		},
	}
}
