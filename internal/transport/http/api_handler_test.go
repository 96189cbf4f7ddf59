package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"
	"quizgen/internal/infra/memory"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestCreateJoinAndRankFlow(t *testing.T) {
	server := newTestServer(t, newTestService(nil))

	resp := postJSON(t, server.URL+"/api/games", map[string]any{"name": "Alice", "topic": "Arithmetic", "language": "english"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created createGameResponse
	decode(t, resp, &created)
	if created.Game.ID == "" || created.User.ID == "" || created.Game.OwnerID != created.User.ID {
		t.Fatalf("unexpected create response %+v", created)
	}
	if created.ShareURL != "http://quiz.test/?game="+created.Game.ID {
		t.Fatalf("unexpected share url %q", created.ShareURL)
	}

	getResp, err := http.Get(server.URL + "/api/games/" + created.Game.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	var game domain.Game
	decode(t, getResp, &game)
	if len(game.Questions) != 1 || game.Questions[0].RightAnswer.Text != "4" {
		t.Fatalf("unexpected game %+v", game)
	}

	joinResp := postJSON(t, server.URL+"/api/games/"+created.Game.ID+"/players", map[string]string{"name": "Bobby"})
	if joinResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on join, got %d", joinResp.StatusCode)
	}
	var friend domain.User
	decode(t, joinResp, &friend)

	for _, r := range []submitResultRequest{
		{UserID: created.User.ID, GameID: created.Game.ID, Score: 0},
		{UserID: friend.ID, GameID: created.Game.ID, Score: 100},
	} {
		res := postJSON(t, server.URL+"/api/results", r)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201 on result, got %d", res.StatusCode)
		}
		res.Body.Close()
	}

	rankResp, err := http.Get(fmt.Sprintf("%s/api/games/%s/ranking?userId=%s", server.URL, created.Game.ID, created.User.ID))
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	var results domain.Results
	decode(t, rankResp, &results)
	if len(results.Rankings) != 2 || results.Rankings[0].UserName != "Bobby" {
		t.Fatalf("unexpected rankings %+v", results.Rankings)
	}
	if results.Position != 2 || results.Score != 0 {
		t.Fatalf("expected Alice at position 2 with 0 points, got %d/%d", results.Position, results.Score)
	}
}

func TestErrorStatusCodes(t *testing.T) {
	server := newTestServer(t, newTestService(memory.NewRateLimiter(1)))

	resp := postJSON(t, server.URL+"/api/games", map[string]any{"name": "Al", "topic": "Arithmetic"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short name, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/api/games/zzzzzz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/results", map[string]any{"userId": "nobody", "gameId": "zzzzzz", "score": 10})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game result, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/games", map[string]any{"name": "Alice", "topic": "Arithmetic"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected first game to be created, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = postJSON(t, server.URL+"/api/games", map[string]any{"name": "Alice", "topic": "Arithmetic"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on the second game of the day, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, domain.GenerationRequest) ([]domain.Question, error) {
	return nil, errors.New("upstream timeout")
}

func TestGenerationFailureIsBadGateway(t *testing.T) {
	store := memory.NewStore()
	service := app.NewQuizService(app.Deps{
		Users:     store,
		GameStore: store,
		Rankings:  app.NewRankingService(store, ""),
		Generator: failingGenerator{},
		Sessions:  memory.NewSessionStore(time.Minute),
	}, app.Settings{})
	server := newTestServer(t, service)

	resp := postJSON(t, server.URL+"/api/games", map[string]any{"name": "Alice", "topic": "Arithmetic"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStatusForValidationError(t *testing.T) {
	err := domain.ValidateQuestions(nil).Err()
	if got := statusFor(err); got != http.StatusBadGateway {
		t.Fatalf("expected 502 for generated questions failing validation, got %d", got)
	}
	if got := statusFor(domain.ErrEmptyQuestionSet); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for a game without questions, got %d", got)
	}
	if got := statusFor(fmt.Errorf("%w: boom", domain.ErrPersistence)); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestServerScoringOnlyHidesAnswers(t *testing.T) {
	server := newTestServerWithOptions(t, newTestService(nil), RouterOptions{ServerScoringOnly: true})

	resp := postJSON(t, server.URL+"/api/games", map[string]any{"name": "Alice", "topic": "Arithmetic"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created map[string]json.RawMessage
	decode(t, resp, &created)
	if bytes.Contains(created["game"], []byte("rightAnswer")) {
		t.Fatalf("create response leaked answers: %s", created["game"])
	}
	var game publicGame
	if err := json.Unmarshal(created["game"], &game); err != nil {
		t.Fatalf("decode game: %v", err)
	}
	var user domain.User
	if err := json.Unmarshal(created["user"], &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}

	getResp, err := http.Get(server.URL + "/api/games/" + game.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	var raw json.RawMessage
	decode(t, getResp, &raw)
	if bytes.Contains(raw, []byte("rightAnswer")) {
		t.Fatalf("game payload leaked answers: %s", raw)
	}
	if err := json.Unmarshal(raw, &game); err != nil {
		t.Fatalf("decode game: %v", err)
	}
	if len(game.Questions) != 1 || game.Questions[0].Text != "What is 2 + 2?" || len(game.Questions[0].Options) != 4 {
		t.Fatalf("unexpected questions %+v", game.Questions)
	}

	resultResp := postJSON(t, server.URL+"/api/results", map[string]any{"userId": user.ID, "gameId": game.ID, "score": 100})
	resultResp.Body.Close()
	if resultResp.StatusCode != http.StatusNotFound && resultResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected client-reported results to be disabled, got %d", resultResp.StatusCode)
	}
}
