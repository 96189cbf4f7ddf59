package domain

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyQuestionSet is returned when a game carries no questions and a session cannot start.
	ErrEmptyQuestionSet = errors.New("no questions available")
	// ErrInvalidQuestions indicates generated questions failed the format rules.
	ErrInvalidQuestions = errors.New("invalid question set")
	// ErrGameNotFound is returned when a game id does not resolve.
	ErrGameNotFound = errors.New("game not found")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrPersistence wraps read/write failures against the backing store.
	ErrPersistence = errors.New("persistence failure")
	// ErrGeneration wraps failures of the external question generator.
	ErrGeneration = errors.New("question generation failed")
	// ErrRateLimited is returned when a client exceeded its daily game creation quota.
	ErrRateLimited = errors.New("daily game limit reached, try again tomorrow")
	// ErrInvalidInput indicates a malformed creation or join request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidResult indicates a ranking result violated its preconditions.
	ErrInvalidResult = errors.New("invalid result")
	// ErrSessionNotFound is returned when a session handle is unknown or expired.
	ErrSessionNotFound = errors.New("quiz session not found")
)

// ValidationError carries every rule violation found in a question set. Empty marks a
// set with no questions at all; such an error also matches ErrEmptyQuestionSet.
type ValidationError struct {
	Errors []string
	Empty  bool
}

func (e *ValidationError) Error() string {
	return ErrInvalidQuestions.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuestions || (e.Empty && target == ErrEmptyQuestionSet)
}
