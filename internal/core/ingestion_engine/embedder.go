package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/docvault/internal/core"
)

// Embedder turns chunk texts into vectors through an embedding provider.
// It makes exactly one provider call per Embed; retries belong to the provider.
//
// provider: embedding capability (Gemini, OpenAI, a retrying decorator, a fake).
// timeout:  deadline for the provider call (0 = none).
// dim:      expected vector length (0 = every vector must match the first).
type Embedder struct {
	provider core.EmbeddingProvider
	timeout  time.Duration
	dim      int
}

func NewEmbedder(provider core.EmbeddingProvider, timeout time.Duration, dim int) *Embedder {
	return &Embedder{provider: provider, timeout: timeout, dim: dim}
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vecs, err := e.provider.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, core.Wrap(core.ErrProvider, "embed", err)
	}
	if len(vecs) != len(texts) {
		return nil, core.Wrap(core.ErrProvider, "embed", fmt.Errorf("size mismatch: got %d want %d", len(vecs), len(texts)))
	}

	want := e.dim
	if want == 0 {
		want = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) == 0 || len(v) != want {
			return nil, core.Wrap(core.ErrProvider, "embed", fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), want))
		}
	}
	return vecs, nil
}
