package core

import "context"

// EmbeddingProvider turns texts into fixed-dimension vectors, one per input,
// in input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenCounter counts tokens the way the target embedding model does.
type TokenCounter interface {
	CountTokens(text string) int
}
