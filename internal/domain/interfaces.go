package domain

import (
	"context"
)

// Provider defines the interface for text-generation backends.
type Provider interface {
	Name() string

	// Generate performs a single non-streaming call.
	Generate(ctx context.Context, req *GenerationRequest) (string, error)

	// Stream returns a channel of text fragments in arrival order.
	// The channel MUST be closed by the provider when done.
	Stream(ctx context.Context, req *GenerationRequest) (<-chan TextChunk, error)
}
