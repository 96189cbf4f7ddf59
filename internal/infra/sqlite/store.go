package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // driver: sqlite

	"quizgen/internal/domain"
)

const maxIDAttempts = 5

const schema = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id   TEXT PRIMARY KEY,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
  id             TEXT PRIMARY KEY,
  topic          TEXT NOT NULL,
  language       TEXT NOT NULL,
  question_count INTEGER NOT NULL,
  owner_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  questions_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS game_rankings (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  score   INTEGER NOT NULL CHECK (score >= 0)
);

CREATE INDEX IF NOT EXISTS game_rankings_game_idx ON game_rankings(game_id, score DESC);
`

// Store persists users, games and rankings in a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file:quizgen.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection keeps PRAGMAs and writes serialised
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertUser(ctx context.Context, name string) (domain.User, error) {
	id, err := s.insertWithFreshID(func(id string) (sql.Result, error) {
		return s.db.ExecContext(ctx, `INSERT OR IGNORE INTO users (id, name) VALUES (?, ?)`, id, name)
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return domain.User{ID: id, Name: name}, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user := domain.User{ID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, userID).Scan(&user.Name)
	if errors.Is(err, sql.ErrNoRows) {
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
	id, err := s.insertWithFreshID(func(id string) (sql.Result, error) {
		return s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO games (id, topic, language, question_count, owner_id, questions_json) VALUES (?, ?, ?, ?, ?, ?)`,
			id, game.Topic, game.Language, game.QuestionCount, game.OwnerID, string(questions))
	})
	if err != nil {
		return domain.Game{}, fmt.Errorf("insert game: %w", err)
	}
	game.ID = id
	return game, nil
}

func (s *Store) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	game := domain.Game{ID: gameID}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT topic, language, question_count, owner_id, questions_json FROM games WHERE id = ?`, gameID).
		Scan(&game.Topic, &game.Language, &game.QuestionCount, &game.OwnerID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load game: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &game.Questions); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return game, nil
}

// LoadGame satisfies the cache loader interfaces.
func (s *Store) LoadGame(ctx context.Context, gameID string) (domain.Game, error) {
	return s.GetGame(ctx, gameID)
}

func (s *Store) InsertRanking(ctx context.Context, gameID, userID string, score int) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO game_rankings (game_id, user_id, score) VALUES (?, ?, ?)`, gameID, userID, score); err != nil {
		return fmt.Errorf("insert ranking: %w", err)
	}
	return nil
}

func (s *Store) ListRankings(ctx context.Context, gameID string) ([]domain.RankingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.user_id, COALESCE(u.name, ''), r.score
		   FROM game_rankings r
		   LEFT JOIN users u ON u.id = r.user_id
		  WHERE r.game_id = ?
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

func (s *Store) insertWithFreshID(insert func(id string) (sql.Result, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := domain.NewID()
		if err != nil {
			return "", err
		}
		res, err := insert(id)
		if err != nil {
			return "", err
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free id after %d attempts", maxIDAttempts)
}
