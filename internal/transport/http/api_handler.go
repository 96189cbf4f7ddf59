package http

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizgen/internal/app"
	"quizgen/internal/domain"
)

// APIHandler serves the REST endpoints for game creation, sharing and results.
type APIHandler struct {
	service     *app.QuizService
	hideAnswers bool
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

type createGameResponse struct {
	Game     domain.Game `json:"game"`
	User     domain.User `json:"user"`
	ShareURL string      `json:"shareUrl,omitempty"`
}

// publicGame is a game without right answers.
type publicGame struct {
	ID            string             `json:"id"`
	Topic         string             `json:"topic"`
	Language      string             `json:"language"`
	QuestionCount int                `json:"questionCount"`
	OwnerID       string             `json:"ownerId"`
	Questions     []app.QuestionView `json:"questions"`
}

func newPublicGame(game domain.Game) publicGame {
	views := make([]app.QuestionView, 0, len(game.Questions))
	for _, q := range game.Questions {
		views = append(views, app.QuestionView{Text: q.Text, Options: q.Options})
	}
	return publicGame{
		ID:            game.ID,
		Topic:         game.Topic,
		Language:      game.Language,
		QuestionCount: game.QuestionCount,
		OwnerID:       game.OwnerID,
		Questions:     views,
	}
}

type publicCreateGameResponse struct {
	Game     publicGame  `json:"game"`
	User     domain.User `json:"user"`
	ShareURL string      `json:"shareUrl,omitempty"`
}

type joinGameRequest struct {
	Name string `json:"name"`
}

type submitResultRequest struct {
	UserID string `json:"userId"`
	GameID string `json:"gameId"`
	Score  int    `json:"score"`
}

func (h *APIHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req app.CreateGameRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	req.ClientKey = clientIP(r)

	game, user, err := h.service.CreateGame(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	shareURL := h.service.Rankings().ShareURL(game.ID)
	if h.hideAnswers {
		respondJSON(w, http.StatusCreated, publicCreateGameResponse{Game: newPublicGame(game), User: user, ShareURL: shareURL})
		return
	}
	respondJSON(w, http.StatusCreated, createGameResponse{Game: game, User: user, ShareURL: shareURL})
}

func (h *APIHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		respondError(w, err)
		return
	}
	if h.hideAnswers {
		respondJSON(w, http.StatusOK, newPublicGame(game))
		return
	}
	respondJSON(w, http.StatusOK, game)
}

func (h *APIHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	var req joinGameRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	user, err := h.service.JoinGame(r.Context(), chi.URLParam(r, "gameID"), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *APIHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context(), chi.URLParam(r, "gameID"), r.URL.Query().Get("userId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *APIHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req submitResultRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.SubmitResult(r.Context(), req.UserID, req.GameID, req.Score); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// clientIP returns the caller address; middleware.RealIP has already applied proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
