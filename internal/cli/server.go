package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quizgen/internal/app"
	"quizgen/internal/config"
	"quizgen/internal/domain"
	"quizgen/internal/infra/ai"
	"quizgen/internal/infra/memory"
	"quizgen/internal/infra/postgres"
	redisinfra "quizgen/internal/infra/redis"
	"quizgen/internal/infra/sqlite"
	transport "quizgen/internal/transport/http"
)

const defaultMaxGamesPerDay = 10

// gameStore is what every persistence backend provides.
type gameStore interface {
	app.UserRepository
	app.GameRepository
	app.RankingRepository
	LoadGame(ctx context.Context, gameID string) (domain.Game, error)
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	gameTTL := config.TTLDuration(cfg.Game.TTL, 10*time.Minute)

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	deps := app.Deps{
		Users:     store,
		GameStore: store,
		Rankings:  app.NewRankingService(store, cfg.Server.PublicURL),
		Generator: generator,
	}
	maxPerDay := cfg.Game.RateLimit.MaxPerDay
	if maxPerDay <= 0 {
		maxPerDay = defaultMaxGamesPerDay
	}
	if redisClient != nil {
		deps.Games = redisinfra.NewGameCache(redisClient, store, gameTTL)
		deps.Sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
		if cfg.Game.RateLimit.Enabled {
			deps.Limiter = redisinfra.NewRateLimiter(redisClient, maxPerDay)
		}
	} else {
		deps.Games = memory.NewGameCache(store, gameTTL)
		deps.Sessions = memory.NewSessionStore(redisTTL)
		if cfg.Game.RateLimit.Enabled {
			deps.Limiter = memory.NewRateLimiter(maxPerDay)
		}
	}

	generationTimeout := config.TTLDuration(cfg.AI.Timeout, 60*time.Second)
	service := app.NewQuizService(deps, app.Settings{
		FeedbackDelay:     config.TTLDuration(cfg.Game.FeedbackDelay, app.DefaultFeedbackDelay),
		GenerationTimeout: generationTimeout,
		QuestionCount:     cfg.AI.QuestionCount,
	})

	router := transport.NewRouter(service, transport.RouterOptions{
		CORSOrigins:       cfg.Server.CORSOrigins,
		ServerScoringOnly: cfg.Game.ServerScoringOnly,
	})
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: generationTimeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[INFO] starting quiz service on :%s (generator=%s)", finalPort, providerName(cfg))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[INFO] shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore picks Postgres, then SQLite, then the in-memory store.
func openStore(ctx context.Context, cfg config.Config) (gameStore, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] using postgres store")
		return postgres.NewStore(pool), pool.Close, nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] using sqlite store at %s", cfg.SQLite.Path)
		return store, func() { _ = store.Close() }, nil
	default:
		log.Printf("[WARN] no database configured, games are kept in memory")
		return memory.NewStore(), func() {}, nil
	}
}

func newGenerator(cfg config.Config) (app.QuestionGenerator, error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("ai.apiKey or OPENAI_API_KEY is required for the openai provider")
		}
		return ai.NewOpenAIGenerator(cfg.AI.Model, cfg.AI.APIKey)
	case config.ProviderAnthropic:
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("ai.apiKey or ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return ai.NewAnthropicGenerator(cfg.AI.Model, cfg.AI.APIKey), nil
	case config.ProviderStatic, "":
		return ai.NewStaticGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

func providerName(cfg config.Config) string {
	if cfg.AI.Provider == "" {
		return config.ProviderStatic
	}
	return cfg.AI.Provider
}
