package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"quizgen/internal/domain"
)

const DefaultOpenAIModel = "gpt-4o-mini"

var storeQuestionsTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        StoreQuestionsTool,
			Description: "Store generated quiz questions",
			Parameters:  storeQuestionsParameters,
		},
	},
}

// LLMGenerator generates questions through any langchaingo chat model using function calling.
type LLMGenerator struct {
	llm         llms.Model
	temperature float64
}

// NewOpenAIGenerator builds an LLMGenerator backed by the OpenAI API.
func NewOpenAIGenerator(model, apiKey string) (*LLMGenerator, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	llm, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return NewLLMGenerator(llm), nil
}

func NewLLMGenerator(llm llms.Model) *LLMGenerator {
	return &LLMGenerator{llm: llm, temperature: 0.7}
}

func (g *LLMGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	log.Printf("[INFO] Generating %d questions about %q (%s)", req.Count, req.Topic, req.Language)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildUserPrompt(req)),
	}
	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTools(storeQuestionsTools),
		llms.WithTemperature(g.temperature),
		llms.WithToolChoice("required"))
	if err != nil {
		return nil, fmt.Errorf("%w: call model: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return nil, generationError("empty model response")
	}

	choice := resp.Choices[0]
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil || call.FunctionCall.Name != StoreQuestionsTool {
			continue
		}
		questions, err := parseToolArguments([]byte(call.FunctionCall.Arguments))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		if len(questions) == 0 {
			return nil, generationError("model stored no questions")
		}
		return questions, nil
	}

	log.Printf("[WARN] Model did not call %s, extracting questions from text", StoreQuestionsTool)
	questions, err := extractQuestions(choice.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if len(questions) == 0 {
		return nil, generationError("model returned no questions")
	}
	return questions, nil
}
