package port

import (
	"context"
	"megumi/internal/core/domain"
)

type TextGenerator interface {
	GenerateFromPrompt(ctx context.Context, prompts []domain.Prompt) (domain.ModelResponse, error)
}

// ReplyAPI is the external HTTP service most commands relay to.
type ReplyAPI interface {
	// Get requests {base}{operation}?{params} and returns the result field of the response.
	Get(ctx context.Context, operation string, params ...domain.QueryParam) (string, error)
}
