package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quizgen/internal/domain"
)

type errorPayload struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	payload := errorPayload{Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		payload.Details = verr.Errors
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] request failed: %v", err)
	}
	respondJSON(w, status, payload)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	// rejected generator output also matches ErrEmptyQuestionSet; it stays a 502
	case errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrInvalidQuestions):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidResult),
		errors.Is(err, domain.ErrEmptyQuestionSet):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
