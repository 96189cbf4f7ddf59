package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"
	"quizgen/internal/infra/ai"
	"quizgen/internal/infra/memory"
)

func arithmeticQuestion() domain.Question {
	return domain.Question{
		Text:        "What is 2 + 2?",
		Options:     []string{"3", "4", "5", "6"},
		RightAnswer: domain.RightAnswer{Index: 2, Text: "4"},
	}
}

func newTestService(limiter app.RateLimiter) *app.QuizService {
	return newTestServiceWithDelay(10*time.Millisecond, limiter)
}

func newTestServiceWithDelay(delay time.Duration, limiter app.RateLimiter) *app.QuizService {
	store := memory.NewStore()
	deps := app.Deps{
		Users:     store,
		GameStore: store,
		Games:     memory.NewGameCache(store, time.Minute),
		Rankings:  app.NewRankingService(store, "http://quiz.test"),
		Generator: ai.NewStaticGenerator(arithmeticQuestion()),
		Sessions:  memory.NewSessionStore(time.Minute),
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	return app.NewQuizService(deps, app.Settings{FeedbackDelay: delay})
}

func newTestServer(t *testing.T, service *app.QuizService) *httptest.Server {
	t.Helper()
	return newTestServerWithOptions(t, service, RouterOptions{CORSOrigins: []string{"http://localhost:5173"}})
}

func newTestServerWithOptions(t *testing.T, service *app.QuizService, opts RouterOptions) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(service, opts))
	t.Cleanup(server.Close)
	return server
}
