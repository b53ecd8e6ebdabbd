package vectorindex

import (
	"context"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/models"
)

// Factory builds and loads bbolt-backed stores.
type Factory struct{}

var _ core.VectorStoreFactory = Factory{}

func (Factory) FromEntries(_ context.Context, entries []models.EmbeddedChunk) (core.VectorStore, error) {
	s, err := FromEntries(entries)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (Factory) Load(ctx context.Context, dir string) (core.VectorStore, error) {
	s, err := Load(ctx, dir)
	if err != nil || s == nil {
		return nil, err
	}
	return s, nil
}
