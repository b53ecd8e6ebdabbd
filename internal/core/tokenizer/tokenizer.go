// Package tokenizer counts tokens for chunk budget checks.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/markdave123-py/docvault/internal/core"
)

// DefaultModel is the model whose encoding the reference token budget was set for.
const DefaultModel = "text-embedding-ada-002"

var (
	_ core.TokenCounter = (*TiktokenCounter)(nil)
	_ core.TokenCounter = ApproxCounter{}
)

// TiktokenCounter counts tokens with the BPE encoding of an OpenAI model.
type TiktokenCounter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding used by model.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	if model == "" {
		model = DefaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tiktoken encoding for %q: %w", model, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (t *TiktokenCounter) CountTokens(text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(text, nil, nil))
}

// ApproxCounter is a cheap token estimator (~4 chars ≈ 1 token), used when no
// encoding can be loaded.
type ApproxCounter struct{}

func (ApproxCounter) CountTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

// New returns a tiktoken counter for model, falling back to ApproxCounter.
func New(model string) (core.TokenCounter, error) {
	tc, err := NewTiktokenCounter(model)
	if err != nil {
		return ApproxCounter{}, err
	}
	return tc, nil
}
