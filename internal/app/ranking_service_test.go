package app_test

import (
	"context"
	"errors"
	"testing"

	"quizgen/internal/app"
	"quizgen/internal/domain"
	"quizgen/internal/infra/memory"
)

func TestGetRankingOrdersByScoreDescending(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a, _ := store.InsertUser(ctx, "A")
	b, _ := store.InsertUser(ctx, "B")
	c, _ := store.InsertUser(ctx, "C")
	service := app.NewRankingService(store, "")

	for _, r := range []struct {
		id    string
		score int
	}{{a.ID, 50}, {b.ID, 90}, {c.ID, 90}} {
		if err := service.RecordResult(ctx, r.id, "game01", r.score); err != nil {
			t.Fatalf("record result: %v", err)
		}
	}

	rankings, err := service.GetRanking(ctx, "game01")
	if err != nil {
		t.Fatalf("get ranking: %v", err)
	}
	if len(rankings) != 3 || rankings[0].UserID != b.ID || rankings[1].UserID != c.ID || rankings[2].UserID != a.ID {
		t.Fatalf("expected B, C, A, got %+v", rankings)
	}
	if pos := app.FindPosition(rankings, a.ID); pos != 3 {
		t.Fatalf("expected A at position 3, got %d", pos)
	}
	if pos := app.FindPosition(rankings, "nobody"); pos != 0 {
		t.Fatalf("expected 0 for absent user, got %d", pos)
	}
}

func TestGetRankingKeepsInsertionOrderForTies(t *testing.T) {
	repo := &listRepo{entries: []domain.RankingEntry{
		{UserID: "a", Score: 10},
		{UserID: "b", Score: 30},
		{UserID: "c", Score: 10},
		{UserID: "d", Score: 30},
	}}
	rankings, err := app.NewRankingService(repo, "").GetRanking(context.Background(), "game01")
	if err != nil {
		t.Fatalf("get ranking: %v", err)
	}
	got := ""
	for _, e := range rankings {
		got += e.UserID
	}
	if got != "bdac" {
		t.Fatalf("expected stable order bdac, got %s", got)
	}
}

func TestFindPositionReturnsFirstMatch(t *testing.T) {
	rankings := []domain.RankingEntry{{UserID: "x", Score: 300}, {UserID: "y", Score: 200}, {UserID: "x", Score: 100}}
	if pos := app.FindPosition(rankings, "x"); pos != 1 {
		t.Fatalf("expected first match at 1, got %d", pos)
	}
}

func TestRecordResultValidatesInput(t *testing.T) {
	service := app.NewRankingService(memory.NewStore(), "")
	ctx := context.Background()
	cases := []struct {
		user, game string
		score      int
	}{
		{"", "game01", 0},
		{"user01", "", 0},
		{"user01", "game01", -1},
	}
	for _, tc := range cases {
		if err := service.RecordResult(ctx, tc.user, tc.game, tc.score); !errors.Is(err, domain.ErrInvalidResult) {
			t.Fatalf("expected ErrInvalidResult for %+v, got %v", tc, err)
		}
	}
}

func TestRecordResultWrapsStoreFailures(t *testing.T) {
	boom := errors.New("disk full")
	service := app.NewRankingService(&listRepo{err: boom}, "")
	err := service.RecordResult(context.Background(), "user01", "game01", 100)
	if !errors.Is(err, domain.ErrPersistence) || !errors.Is(err, boom) {
		t.Fatalf("expected persistence error wrapping cause, got %v", err)
	}
	if _, err := service.GetRanking(context.Background(), "game01"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error on read, got %v", err)
	}
}

func TestResultsIncludesPositionAndShareURL(t *testing.T) {
	repo := &listRepo{entries: []domain.RankingEntry{
		{UserID: "b", UserName: "Bob", Score: 300},
		{UserID: "a", UserName: "Ann", Score: 200},
	}}
	service := app.NewRankingService(repo, "https://quiz.example.com/")
	results, err := service.Results(context.Background(), "game01", "a")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Position != 2 || results.Score != 200 {
		t.Fatalf("expected position 2 with 200 points, got %+v", results)
	}
	if results.ShareURL != "https://quiz.example.com/?game=game01" {
		t.Fatalf("unexpected share url %q", results.ShareURL)
	}

	results, _ = service.Results(context.Background(), "game01", "zz")
	if results.Position != 0 || results.Score != 0 {
		t.Fatalf("expected no position for absent user, got %+v", results)
	}
}

type listRepo struct {
	entries []domain.RankingEntry
	err     error
}

func (r *listRepo) InsertRanking(_ context.Context, _, userID string, score int) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, domain.RankingEntry{UserID: userID, Score: score})
	return nil
}

func (r *listRepo) ListRankings(context.Context, string) ([]domain.RankingEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.RankingEntry(nil), r.entries...), nil
}
