package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizgen/internal/app"
	"quizgen/internal/domain"
	"quizgen/internal/infra/ai"
	"quizgen/internal/infra/postgres"
	pgmigrations "quizgen/internal/infra/postgres/migrations"
	infraredis "quizgen/internal/infra/redis"
)

func TestQuizSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	newService := func(delay time.Duration) *app.QuizService {
		store := postgres.NewStore(pool)
		return app.NewQuizService(app.Deps{
			Users:     store,
			GameStore: store,
			Games:     infraredis.NewGameCache(redisClient, store, 5*time.Minute),
			Rankings:  app.NewRankingService(store, "http://quiz.test"),
			Generator: ai.NewStaticGenerator(),
			Limiter:   infraredis.NewRateLimiter(redisClient, 5),
			Sessions:  infraredis.NewSessionStore(redisClient, 5*time.Minute),
		}, app.Settings{FeedbackDelay: delay})
	}
	service := newService(10 * time.Millisecond)

	game, owner, err := service.CreateGame(ctx, app.CreateGameRequest{Name: "Alice", Topic: "General knowledge", ClientKey: "10.0.0.1"})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if len(game.Questions) != 10 {
		t.Fatalf("expected 10 stored questions, got %d", len(game.Questions))
	}

	session, err := service.StartSession(ctx, game.ID, owner.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	updates, cancel := session.Subscribe()
	defer cancel()

	for i, q := range game.Questions {
		waitFor(t, updates, func(s app.Snapshot) bool {
			return s.Phase == domain.PhaseAwaitingAnswer && s.CurrentIndex == i
		})
		answer := q.RightAnswer.Text
		if i%2 == 1 {
			answer = q.Options[q.RightAnswer.Index%domain.OptionCount]
		}
		if _, ok := session.SubmitAnswer(answer); !ok {
			t.Fatalf("answer %d not accepted", i)
		}
	}
	done := waitFor(t, updates, func(s app.Snapshot) bool { return s.Phase == domain.PhaseCompleted })
	if done.Result == nil || done.Result.Score != 500 || done.SaveFailed {
		t.Fatalf("unexpected completion %+v", done)
	}
	service.ReleaseSession(ctx, session)

	friend, err := service.JoinGame(ctx, game.ID, "Bobby")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	paused := newService(time.Hour)
	second, err := paused.StartSession(ctx, game.ID, friend.ID)
	if err != nil {
		t.Fatalf("start second session: %v", err)
	}
	second.SubmitAnswer(game.Questions[0].RightAnswer.Text)
	paused.ReleaseSession(ctx, second)

	// a fresh process resumes the checkpoint stored in redis
	resumed, err := newService(10*time.Millisecond).ResumeSession(ctx, second.ID())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	snap := resumed.Snapshot()
	if snap.Phase != domain.PhaseRevealingAnswer || snap.CorrectCount != 1 || snap.UserID != friend.ID {
		t.Fatalf("unexpected resumed snapshot %+v", snap)
	}
	resumed.Close()

	results, err := service.Results(ctx, game.ID, owner.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results.Rankings) != 1 || results.Position != 1 || results.Score != 500 || results.Rankings[0].UserName != "Alice" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func waitFor(t *testing.T, updates <-chan app.Snapshot, match func(app.Snapshot) bool) app.Snapshot {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				t.Fatalf("session closed before the expected snapshot")
			}
			if match(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting for snapshot")
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
