package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"quizgen/internal/domain"
)

// StoreQuestionsTool is the function the model must call with the generated questions.
const StoreQuestionsTool = "store_questions"

const systemPrompt = `You are an expert at creating educational quiz questions.

For each question:
- Create a clear, concise question related to the topic
- Generate exactly 4 possible answers (options), all different
- Mark one option as the correct answer
- Ensure questions are accurate and educational
- Make sure questions vary in difficulty

The "number" in rightAnswer is 1-based (1, 2, 3 or 4) and is the position of the
correct option. The "text" in rightAnswer must exactly match that option.

ALWAYS use the tool 'store_questions' to return the questions.`

var questionArray = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// storeQuestionsInput is the argument object of StoreQuestionsTool.
type storeQuestionsInput struct {
	Questions []questionInput `json:"questions" jsonschema:"description=The generated quiz questions"`
}

type questionInput struct {
	Question    string      `json:"question" jsonschema:"description=The question text"`
	Options     []string    `json:"options" jsonschema:"description=Exactly four distinct answers,minItems=4,maxItems=4"`
	RightAnswer answerInput `json:"rightAnswer"`
}

type answerInput struct {
	Number int    `json:"number" jsonschema:"description=1-based position of the correct option,minimum=1,maximum=4"`
	Text   string `json:"text" jsonschema:"description=Exact text of the correct option"`
}

func (q questionInput) toDomain() domain.Question {
	return domain.Question{
		Text:        q.Question,
		Options:     q.Options,
		RightAnswer: domain.RightAnswer{Index: q.RightAnswer.Number, Text: q.RightAnswer.Text},
	}
}

// storeQuestionsParameters is the JSON schema of storeQuestionsInput for function-calling APIs.
var storeQuestionsParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type":        "array",
			"description": "The generated quiz questions",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{"type": "string"},
					"options": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": domain.OptionCount,
						"maxItems": domain.OptionCount,
					},
					"rightAnswer": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"number": map[string]any{"type": "integer", "minimum": 1, "maximum": domain.OptionCount},
							"text":   map[string]any{"type": "string"},
						},
						"required": []string{"number", "text"},
					},
				},
				"required": []string{"question", "options", "rightAnswer"},
			},
		},
	},
	"required": []string{"questions"},
}

func buildUserPrompt(req domain.GenerationRequest) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Generate %d quiz questions about %s.\n", req.Count, req.Topic))
	if req.Language != "" {
		prompt.WriteString(fmt.Sprintf("Write the questions and the options in %s.\n", req.Language))
	}
	return prompt.String()
}

// parseToolArguments decodes the arguments of a store_questions call.
func parseToolArguments(raw []byte) ([]domain.Question, error) {
	var input storeQuestionsInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("parse %s arguments: %w", StoreQuestionsTool, err)
	}
	return convert(input.Questions), nil
}

// extractQuestions pulls the first JSON array of question objects out of a text reply.
func extractQuestions(text string) ([]domain.Question, error) {
	match := questionArray.FindString(text)
	if match == "" {
		return nil, errors.New("no question array in model reply")
	}
	var questions []questionInput
	if err := json.Unmarshal([]byte(match), &questions); err != nil {
		return nil, fmt.Errorf("parse question array: %w", err)
	}
	return convert(questions), nil
}

func convert(in []questionInput) []domain.Question {
	out := make([]domain.Question, 0, len(in))
	for _, q := range in {
		out = append(out, q.toDomain())
	}
	return out
}

func generationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrGeneration, fmt.Sprintf(format, args...))
}
