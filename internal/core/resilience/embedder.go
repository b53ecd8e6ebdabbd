package resilience

import (
	"context"
	"log"

	"github.com/markdave123-py/docvault/internal/core"
)

// RetryingEmbedder retries a provider's calls with bounded backoff. Exhaustion
// returns the provider's last error.
type RetryingEmbedder struct {
	next core.EmbeddingProvider
	cfg  RetryConfig
}

var _ core.EmbeddingProvider = (*RetryingEmbedder)(nil)

func NewRetryingEmbedder(next core.EmbeddingProvider, cfg RetryConfig) *RetryingEmbedder {
	return &RetryingEmbedder{next: next, cfg: cfg}
}

func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	attempt := 0
	return RetryWithResult(ctx, r.cfg, func() ([][]float32, error) {
		attempt++
		vecs, err := r.next.EmbedTexts(ctx, texts)
		if err != nil && attempt < r.cfg.MaxAttempts {
			log.Printf("WARN: embedding attempt %d/%d failed: %v", attempt, r.cfg.MaxAttempts, err)
		}
		return vecs, err
	})
}
