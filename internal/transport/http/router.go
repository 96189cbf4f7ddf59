package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quizgen/internal/app"
)

// RouterOptions tunes what the HTTP surface exposes.
type RouterOptions struct {
	CORSOrigins []string
	// ServerScoringOnly hides right answers from game payloads and disables
	// client-reported results; scores then come only from websocket sessions.
	ServerScoringOnly bool
}

// NewRouter mounts the REST API, the session websocket and the health check.
func NewRouter(service *app.QuizService, opts RouterOptions) http.Handler {
	api := NewAPIHandler(service)
	api.hideAnswers = opts.ServerScoringOnly
	ws := NewWSHandler(service)
	corsOrigins := opts.CORSOrigins

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/games", api.CreateGame)
		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/", api.GetGame)
			r.Post("/players", api.JoinGame)
			r.Get("/ranking", api.Ranking)
		})
		if !opts.ServerScoringOnly {
			r.Post("/results", api.SubmitResult)
		}
	})
	return r
}
