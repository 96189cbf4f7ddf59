package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizgen/internal/domain"
)

const maxIDAttempts = 5

// Store persists users, games (questions inline as JSONB) and rankings in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertUser(ctx context.Context, name string) (domain.User, error) {
	id, err := s.insertWithFreshID(ctx, func(id string) (int64, error) {
		tag, err := s.pool.Exec(ctx, `INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, name)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return domain.User{ID: id, Name: name}, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user := domain.User{ID: userID}
	err := s.pool.QueryRow(ctx, `SELECT name FROM users WHERE id=$1`, userID).Scan(&user.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Store) InsertGame(ctx context.Context, game domain.Game) (domain.Game, error) {
	questions, err := json.Marshal(game.Questions)
	if err != nil {
		return domain.Game{}, fmt.Errorf("marshal questions: %w", err)
	}
	id, err := s.insertWithFreshID(ctx, func(id string) (int64, error) {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO games (id, topic, language, question_count, owner_id, questions)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb) ON CONFLICT (id) DO NOTHING`,
			id, game.Topic, game.Language, game.QuestionCount, game.OwnerID, string(questions))
		return tag.RowsAffected(), err
	})
	if err != nil {
		return domain.Game{}, fmt.Errorf("insert game: %w", err)
	}
	game.ID = id
	return game, nil
}

func (s *Store) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	game := domain.Game{ID: gameID}
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT topic, language, question_count, owner_id, questions FROM games WHERE id=$1`, gameID).
		Scan(&game.Topic, &game.Language, &game.QuestionCount, &game.OwnerID, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load game: %w", err)
	}
	if err := json.Unmarshal(raw, &game.Questions); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return game, nil
}

// LoadGame satisfies the cache loader interfaces.
func (s *Store) LoadGame(ctx context.Context, gameID string) (domain.Game, error) {
	return s.GetGame(ctx, gameID)
}

func (s *Store) InsertRanking(ctx context.Context, gameID, userID string, score int) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO game_rankings (game_id, user_id, score) VALUES ($1, $2, $3)`, gameID, userID, score)
	if err != nil {
		return fmt.Errorf("insert ranking: %w", err)
	}
	return nil
}

func (s *Store) ListRankings(ctx context.Context, gameID string) ([]domain.RankingEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.user_id, COALESCE(u.name, ''), r.score
		   FROM game_rankings r
		   LEFT JOIN users u ON u.id = r.user_id
		  WHERE r.game_id = $1
		  ORDER BY r.score DESC, r.id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	defer rows.Close()

	entries := []domain.RankingEntry{}
	for rows.Next() {
		var e domain.RankingEntry
		if err := rows.Scan(&e.UserID, &e.UserName, &e.Score); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// insertWithFreshID retries insert with new random ids while it hits an existing row.
func (s *Store) insertWithFreshID(ctx context.Context, insert func(id string) (int64, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := domain.NewID()
		if err != nil {
			return "", err
		}
		n, err := insert(id)
		if err != nil {
			return "", err
		}
		if n == 1 {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free id after %d attempts", maxIDAttempts)
}
