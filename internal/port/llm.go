package port

import "context"

// Generator produces a natural-language answer from retrieved context.
type Generator interface {
	// Generate answers question using only the supplied context.
	Generate(ctx context.Context, contextText, question string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
