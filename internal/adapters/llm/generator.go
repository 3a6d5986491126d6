// Package llm implements the question generator against an OpenAI-compatible
// chat-completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"github.com/target/quiz-pipeline/config"
	"github.com/target/quiz-pipeline/internal/core"
	"github.com/target/quiz-pipeline/internal/domain/model"
)

// CompletionClient is the slice of the OpenAI client the generator uses.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Config config.LLMConfig
	Logger *slog.Logger

	// Client overrides the constructed OpenAI client; useful for tests.
	Client CompletionClient
}

// Generator produces quiz question batches from source material. It
// implements core.QuestionGenerator.
type Generator struct {
	client      CompletionClient
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewGenerator creates a generator from configuration.
func NewGenerator(opts GeneratorOptions) *Generator {
	client := opts.Client
	if client == nil {
		cfg := openai.DefaultConfig(opts.Config.APIKey)
		if opts.Config.BaseURL != "" {
			cfg.BaseURL = opts.Config.BaseURL
		}
		client = openai.NewClientWithConfig(cfg)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:      client,
		model:       opts.Config.Model,
		temperature: opts.Config.Temperature,
		logger:      logger.With("component", "llm_generator"),
	}
}

// GenerateBatch requests one batch of questions and normalizes the response
// into validated domain questions with fresh ids.
func (g *Generator) GenerateBatch(ctx context.Context, req core.GenerateBatchRequest) ([]model.Question, error) {
	if req.QuestionCount < 1 {
		return nil, errors.New("question count must be positive")
	}

	systemPrompt, userPrompt := buildPrompt(req)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return g.normalizeResponse(ctx, resp.Choices[0].Message.Content, req)
}
