package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen/internal/domain"
)

// UserRepository stores players.
type UserRepository interface {
	InsertUser(ctx context.Context, name string) (domain.User, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// GameRepository stores games. InsertGame assigns the id.
type GameRepository interface {
	InsertGame(ctx context.Context, game domain.Game) (domain.Game, error)
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
}

// GameReader loads games, typically through a cache in front of the GameRepository.
type GameReader interface {
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
}

// QuestionGenerator produces questions for a topic (an AI agent in production).
type QuestionGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error)
}

// RateLimiter decides whether a client may create another game.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SessionRepository keeps live sessions and their checkpoints (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Remove(sessionID string)
	SaveState(ctx context.Context, state domain.SessionState) error
	LoadState(ctx context.Context, sessionID string) (domain.SessionState, error)
	DeleteState(ctx context.Context, sessionID string) error
}

// Deps wires QuizService collaborators. Games may be nil, in which case GameStore is read directly.
type Deps struct {
	Users     UserRepository
	GameStore GameRepository
	Games     GameReader
	Rankings  *RankingService
	Generator QuestionGenerator
	Limiter   RateLimiter
	Sessions  SessionRepository
}

// Settings tunes QuizService behaviour.
type Settings struct {
	FeedbackDelay     time.Duration
	GenerationTimeout time.Duration
	StoreTimeout      time.Duration
	Scheduler         Scheduler
	// QuestionCount applies when a request leaves it unset.
	QuestionCount int
}

// QuizService contains the game creation and quiz session use cases.
type QuizService struct {
	users     UserRepository
	gameStore GameRepository
	games     GameReader
	rankings  *RankingService
	generator QuestionGenerator
	limiter   RateLimiter
	sessions  SessionRepository
	settings  Settings
}

func NewQuizService(deps Deps, settings Settings) *QuizService {
	games := deps.Games
	if games == nil {
		games = deps.GameStore
	}
	if settings.FeedbackDelay <= 0 {
		settings.FeedbackDelay = DefaultFeedbackDelay
	}
	if settings.StoreTimeout <= 0 {
		settings.StoreTimeout = 5 * time.Second
	}
	if settings.Scheduler == nil {
		settings.Scheduler = TimerScheduler
	}
	if !allowedQuestionCounts[settings.QuestionCount] {
		settings.QuestionCount = DefaultQuestionCount
	}
	return &QuizService{
		users:     deps.Users,
		gameStore: deps.GameStore,
		games:     games,
		rankings:  deps.Rankings,
		generator: deps.Generator,
		limiter:   deps.Limiter,
		sessions:  deps.Sessions,
		settings:  settings,
	}
}

// Rankings exposes the ranking service the sessions report to.
func (s *QuizService) Rankings() *RankingService {
	return s.rankings
}

// CreateGame registers the owner, generates and validates questions and persists the game.
func (s *QuizService) CreateGame(ctx context.Context, req CreateGameRequest) (domain.Game, domain.User, error) {
	req, err := req.normalize(s.settings.QuestionCount)
	if err != nil {
		return domain.Game{}, domain.User{}, err
	}

	if s.limiter != nil && req.ClientKey != "" {
		allowed, err := s.limiter.Allow(ctx, req.ClientKey)
		if err != nil {
			log.Printf("[WARN] rate limiter unavailable, allowing %s: %v", req.ClientKey, err)
		} else if !allowed {
			return domain.Game{}, domain.User{}, domain.ErrRateLimited
		}
	}

	questions, err := s.generate(ctx, domain.GenerationRequest{
		Topic:    req.Topic,
		Language: req.Language,
		Count:    req.QuestionCount,
	})
	if err != nil {
		return domain.Game{}, domain.User{}, err
	}

	user, err := s.users.InsertUser(ctx, req.Name)
	if err != nil {
		return domain.Game{}, domain.User{}, persistenceError("insert user", err)
	}

	game, err := s.gameStore.InsertGame(ctx, domain.Game{
		Topic:         req.Topic,
		Language:      req.Language,
		QuestionCount: len(questions),
		OwnerID:       user.ID,
		Questions:     questions,
	})
	if err != nil {
		return domain.Game{}, domain.User{}, persistenceError("insert game", err)
	}

	log.Printf("[INFO] game %s created for user %s: topic=%q questions=%d", game.ID, user.ID, game.Topic, len(game.Questions))
	return game, user, nil
}

func (s *QuizService) generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	if s.settings.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.GenerationTimeout)
		defer cancel()
	}

	questions, err := s.generator.Generate(ctx, req)
	if err != nil {
		log.Printf("[ERROR] generate questions for %q: %v", req.Topic, err)
		if errors.Is(err, domain.ErrGeneration) || errors.Is(err, domain.ErrInvalidQuestions) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	result := domain.ValidateQuestions(questions)
	if !result.Valid {
		log.Printf("[WARN] generated questions for %q failed validation: %v", req.Topic, result.Errors)
		return nil, result.Err()
	}
	return result.Questions, nil
}

// JoinGame registers a new player for an existing game, as reached through a share link.
func (s *QuizService) JoinGame(ctx context.Context, gameID, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if err := checkLength("name", name); err != nil {
		return domain.User{}, err
	}
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return domain.User{}, persistenceError("get game", err)
	}
	user, err := s.users.InsertUser(ctx, name)
	if err != nil {
		return domain.User{}, persistenceError("insert user", err)
	}
	return user, nil
}

// GetGame returns a persisted game.
func (s *QuizService) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, persistenceError("get game", err)
	}
	return game, nil
}

// LoadSession resolves the game and user a session starts from.
func (s *QuizService) LoadSession(ctx context.Context, gameID, userID string) (domain.Game, domain.User, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, domain.User{}, persistenceError("get game", err)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Game{}, domain.User{}, persistenceError("get user", err)
	}
	return game, user, nil
}

// StartSession bootstraps a fresh session for the user at the first question.
func (s *QuizService) StartSession(ctx context.Context, gameID, userID string) (*Session, error) {
	game, user, err := s.LoadSession(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	session, err := NewSession(game, user.ID, s.sessionOptions(uuid.NewString())...)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	if err := s.sessions.SaveState(ctx, session.State()); err != nil {
		log.Printf("[WARN] checkpoint session %s: %v", session.ID(), err)
	}
	log.Printf("[INFO] session %s started: game=%s user=%s", session.ID(), game.ID, user.ID)
	return session, nil
}

// ResumeSession rebuilds a session for a new connection. A live session is taken
// over: it is closed and replaced, so its previous owner's release does not touch
// the new one.
func (s *QuizService) ResumeSession(ctx context.Context, sessionID string) (*Session, error) {
	var state domain.SessionState
	if live, ok := s.sessions.Get(sessionID); ok && !live.Closed() {
		live.Close()
		state = live.State()
	} else {
		var err error
		state, err = s.sessions.LoadState(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}
	game, err := s.games.GetGame(ctx, state.GameID)
	if err != nil {
		return nil, persistenceError("get game", err)
	}
	session, err := RestoreSession(game, state, s.sessionOptions(sessionID)...)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	log.Printf("[INFO] session %s resumed at question %d (%s)", sessionID, state.CurrentIndex+1, state.Phase)
	return session, nil
}

// ReleaseSession tears down a connection's session. The registry entry and the
// checkpoint are only touched while session is still the live one for its id.
// Unfinished sessions keep their checkpoint so the player can resume.
func (s *QuizService) ReleaseSession(ctx context.Context, session *Session) {
	session.Close()
	id := session.ID()
	if live, ok := s.sessions.Get(id); !ok || live != session {
		return
	}
	s.sessions.Remove(id)
	if _, done := session.Result(); done {
		if err := s.sessions.DeleteState(ctx, id); err != nil {
			log.Printf("[WARN] delete session state %s: %v", id, err)
		}
	}
}

// SubmitResult records a score reported by a client that ran the quiz itself.
func (s *QuizService) SubmitResult(ctx context.Context, userID, gameID string, score int) error {
	if _, _, err := s.LoadSession(ctx, gameID, userID); err != nil {
		return err
	}
	return s.rankings.RecordResult(ctx, userID, gameID, score)
}

// Results returns the leaderboard view for a player.
func (s *QuizService) Results(ctx context.Context, gameID, userID string) (domain.Results, error) {
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return domain.Results{}, persistenceError("get game", err)
	}
	return s.rankings.Results(ctx, gameID, userID)
}

func (s *QuizService) sessionOptions(sessionID string) []SessionOption {
	return []SessionOption{
		WithSessionID(sessionID),
		WithFeedbackDelay(s.settings.FeedbackDelay),
		WithScheduler(s.settings.Scheduler),
		WithCompletion(s.recordSession),
		WithCheckpoint(s.checkpoint),
	}
}

func (s *QuizService) recordSession(result domain.SessionResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.settings.StoreTimeout)
	defer cancel()
	if err := s.rankings.RecordResult(ctx, result.UserID, result.GameID, result.Score); err != nil {
		return err
	}
	log.Printf("[INFO] session %s completed: game=%s user=%s score=%d", result.SessionID, result.GameID, result.UserID, result.Score)
	return nil
}

func (s *QuizService) checkpoint(state domain.SessionState) {
	ctx, cancel := context.WithTimeout(context.Background(), s.settings.StoreTimeout)
	defer cancel()
	if err := s.sessions.SaveState(ctx, state); err != nil {
		log.Printf("[WARN] checkpoint session %s: %v", state.ID, err)
	}
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
