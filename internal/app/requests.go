package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"quizgen/internal/domain"
)

const (
	minFieldLength = 4
	maxFieldLength = 34

	LanguageEnglish = "english"
	LanguageSpanish = "spanish"

	DefaultQuestionCount = 10
)

var allowedQuestionCounts = map[int]bool{10: true, 20: true, 30: true}

// CreateGameRequest is the game creation form.
type CreateGameRequest struct {
	Name          string `json:"name"`
	Topic         string `json:"topic"`
	Language      string `json:"language"`
	QuestionCount int    `json:"questionCount"`
	// ClientKey identifies the caller for rate limiting (the client IP).
	ClientKey string `json:"-"`
}

func (r CreateGameRequest) normalize(defaultCount int) (CreateGameRequest, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Topic = strings.TrimSpace(r.Topic)
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))

	if err := checkLength("name", r.Name); err != nil {
		return r, err
	}
	if err := checkLength("topic", r.Topic); err != nil {
		return r, err
	}
	switch r.Language {
	case "":
		r.Language = LanguageEnglish
	case LanguageEnglish, LanguageSpanish:
	default:
		return r, fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidInput, r.Language)
	}
	if r.QuestionCount == 0 {
		r.QuestionCount = defaultCount
	}
	if !allowedQuestionCounts[r.QuestionCount] {
		return r, fmt.Errorf("%w: questionCount must be 10, 20 or 30", domain.ErrInvalidInput)
	}
	return r, nil
}

func checkLength(field, value string) error {
	n := utf8.RuneCountInString(value)
	if n < minFieldLength || n > maxFieldLength {
		return fmt.Errorf("%w: %s must be between %d and %d characters", domain.ErrInvalidInput, field, minFieldLength, maxFieldLength)
	}
	return nil
}
