package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"quizgen/internal/domain"
)

// RankingRepository persists final scores.
type RankingRepository interface {
	InsertRanking(ctx context.Context, gameID, userID string, score int) error
	// ListRankings returns the game's entries joined with user names, best score first.
	ListRankings(ctx context.Context, gameID string) ([]domain.RankingEntry, error)
}

// RankingService records completed sessions and serves leaderboards.
type RankingService struct {
	rankings  RankingRepository
	publicURL string
}

func NewRankingService(rankings RankingRepository, publicURL string) *RankingService {
	return &RankingService{rankings: rankings, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// RecordResult appends one ranking entry. It does not retry; callers decide.
func (s *RankingService) RecordResult(ctx context.Context, userID, gameID string, score int) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("%w: userId and gameId are required", domain.ErrInvalidResult)
	}
	if score < 0 {
		return fmt.Errorf("%w: negative score %d", domain.ErrInvalidResult, score)
	}
	if err := s.rankings.InsertRanking(ctx, gameID, userID, score); err != nil {
		return persistenceError("insert ranking", err)
	}
	return nil
}

// GetRanking returns the leaderboard, highest score first. Equal scores keep the
// order the store returned them in.
func (s *RankingService) GetRanking(ctx context.Context, gameID string) ([]domain.RankingEntry, error) {
	entries, err := s.rankings.ListRankings(ctx, gameID)
	if err != nil {
		return nil, persistenceError("list rankings", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}

// FindPosition returns the 1-based rank of the user's first entry, or 0 when absent.
func FindPosition(rankings []domain.RankingEntry, userID string) int {
	_, idx, ok := lo.FindIndexOf(rankings, func(e domain.RankingEntry) bool {
		return e.UserID == userID
	})
	if !ok {
		return 0
	}
	return idx + 1
}

// Results assembles the leaderboard view for a player.
func (s *RankingService) Results(ctx context.Context, gameID, userID string) (domain.Results, error) {
	rankings, err := s.GetRanking(ctx, gameID)
	if err != nil {
		return domain.Results{}, err
	}
	position := FindPosition(rankings, userID)
	score := 0
	if position > 0 {
		score = rankings[position-1].Score
	}
	return domain.Results{
		GameID:   gameID,
		Rankings: rankings,
		Position: position,
		Score:    score,
		ShareURL: s.ShareURL(gameID),
	}, nil
}

// ShareURL builds the link friends use to play the same game.
func (s *RankingService) ShareURL(gameID string) string {
	if s.publicURL == "" {
		return ""
	}
	return s.publicURL + "/?game=" + gameID
}

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errorsIsAny(err, domain.ErrPersistence, domain.ErrGameNotFound, domain.ErrUserNotFound, domain.ErrSessionNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
