package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quizgen/internal/domain"
)

const maxIDAttempts = 5

// Store is an in-memory implementation of the user, game and ranking repositories.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	games    map[string]domain.Game
	rankings map[string][]ranking
}

type ranking struct {
	userID string
	score  int
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		games:    make(map[string]domain.Game),
		rankings: make(map[string][]ranking),
	}
}

func (s *Store) InsertUser(_ context.Context, name string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.freshIDLocked(func(id string) bool { _, ok := s.users[id]; return ok })
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{ID: id, Name: name}
	s.users[id] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) InsertGame(_ context.Context, game domain.Game) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.freshIDLocked(func(id string) bool { _, ok := s.games[id]; return ok })
	if err != nil {
		return domain.Game{}, err
	}
	game.ID = id
	game.Questions = append([]domain.Question(nil), game.Questions...)
	s.games[id] = game
	return game, nil
}

func (s *Store) GetGame(_ context.Context, gameID string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

// LoadGame satisfies GameLoader so the store can sit behind a GameCache.
func (s *Store) LoadGame(ctx context.Context, gameID string) (domain.Game, error) {
	return s.GetGame(ctx, gameID)
}

func (s *Store) InsertRanking(_ context.Context, gameID, userID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[gameID] = append(s.rankings[gameID], ranking{userID: userID, score: score})
	return nil
}

func (s *Store) ListRankings(_ context.Context, gameID string) ([]domain.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rankings[gameID]
	entries := make([]domain.RankingEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.RankingEntry{
			UserID:   r.userID,
			UserName: s.users[r.userID].Name,
			Score:    r.score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}

func (s *Store) freshIDLocked(taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := domain.NewID()
		if err != nil {
			return "", err
		}
		if !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free id after %d attempts", maxIDAttempts)
}
