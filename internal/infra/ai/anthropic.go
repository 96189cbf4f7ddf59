package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"

	"quizgen/internal/domain"
)

const (
	DefaultAnthropicModel = anthropic.ModelClaude4Sonnet20250514
	anthropicMaxTokens    = 4096
)

// AnthropicGenerator generates questions with Claude tool use.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewAnthropicGenerator(model, apiKey string, opts ...option.RequestOption) *AnthropicGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultAnthropicModel
	}
	return &AnthropicGenerator{client: &client, model: m}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	log.Printf("[INFO] Generating %d questions about %q (%s) with %s", req.Count, req.Topic, req.Language, g.model)

	response, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        StoreQuestionsTool,
				Description: anthropic.String("Store generated quiz questions"),
				InputSchema: generateAnthropicSchema[storeQuestionsInput](),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: call Anthropic API: %w", domain.ErrGeneration, err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			if block.Name != StoreQuestionsTool {
				continue
			}
			input, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
			}
			questions, err := parseToolArguments(input)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
			}
			if len(questions) == 0 {
				return nil, generationError("model stored no questions")
			}
			return questions, nil
		}
	}

	log.Printf("[WARN] Model did not call %s, extracting questions from text", StoreQuestionsTool)
	questions, err := extractQuestions(text.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if len(questions) == 0 {
		return nil, generationError("model returned no questions")
	}
	return questions, nil
}

func generateAnthropicSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}
