package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// OpenAIGenerator answers questions through an OpenAI-compatible chat endpoint.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// GeneratorOptions configures OpenAIGenerator.
type GeneratorOptions struct {
	APIKeyEnv   string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
}

func NewOpenAIGenerator(opts GeneratorOptions) (*OpenAIGenerator, error) {
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		timeout:     opts.Timeout,
		temperature: opts.Temperature,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	prompt, err := RenderPrompt(contextText, question)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, errors.New("no choices returned"))
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrGeneration)
	}
	return answer, nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}
