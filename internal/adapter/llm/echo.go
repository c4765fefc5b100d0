package llm

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// EchoGenerator answers with the most relevant passage verbatim. It needs no
// network access and is used for offline runs and tests.
type EchoGenerator struct{}

func NewEchoGenerator() *EchoGenerator {
	return &EchoGenerator{}
}

func (g *EchoGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	first, _, _ := strings.Cut(contextText, "\n\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "I cannot find the answer in the provided document.", nil
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrMissingField)
	}
	return first, nil
}

func (g *EchoGenerator) ModelName() string {
	return "echo"
}
