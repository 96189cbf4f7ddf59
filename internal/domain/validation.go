package domain

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ValidationResult is the outcome of checking a candidate question set.
type ValidationResult struct {
	Valid     bool       `json:"isValid"`
	Errors    []string   `json:"errors"`
	Questions []Question `json:"questions"`
}

// Err returns a *ValidationError when the set is invalid, nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Errors: r.Errors, Empty: len(r.Questions) == 0}
}

// ValidateQuestions checks externally produced questions before they are trusted.
func ValidateQuestions(questions []Question) ValidationResult {
	result := ValidationResult{Questions: questions, Errors: []string{}}
	if len(questions) == 0 {
		result.Errors = append(result.Errors, ErrEmptyQuestionSet.Error()+": question set is empty")
		return result
	}

	for i, q := range questions {
		result.Errors = append(result.Errors, validateQuestion(i+1, q)...)
	}
	result.Valid = len(result.Errors) == 0
	return result
}

func validateQuestion(pos int, q Question) []string {
	var errs []string
	if strings.TrimSpace(q.Text) == "" {
		errs = append(errs, fmt.Sprintf("question %d: text is empty", pos))
	}
	if len(q.Options) != OptionCount {
		errs = append(errs, fmt.Sprintf("question %d: expected %d options, got %d", pos, OptionCount, len(q.Options)))
	}
	if dups := lo.FindDuplicates(q.Options); len(dups) > 0 {
		errs = append(errs, fmt.Sprintf("question %d: duplicate options %q", pos, dups))
	}

	idx := q.RightAnswer.Index
	if idx < 1 || idx > OptionCount {
		errs = append(errs, fmt.Sprintf("question %d: right answer number %d out of range 1..%d", pos, idx, OptionCount))
		return errs
	}
	if idx > len(q.Options) {
		errs = append(errs, fmt.Sprintf("question %d: right answer number %d has no matching option", pos, idx))
		return errs
	}
	if q.Options[idx-1] != q.RightAnswer.Text {
		errs = append(errs, fmt.Sprintf("question %d: right answer text %q does not match option %d %q", pos, q.RightAnswer.Text, idx, q.Options[idx-1]))
	}
	return errs
}
