package core

import (
	"context"

	"github.com/markdave123-py/docvault/internal/models"
)

// VectorStore is a built vector index that can absorb other indexes and be
// written to a directory.
type VectorStore interface {
	// MergeFrom appends every entry of other into the receiver.
	MergeFrom(ctx context.Context, other VectorStore) error
	// RemoveDocument drops every entry of documentID and reports how many were removed.
	RemoveDocument(documentID string) int
	// Save writes the index under dir. Readers never observe a partially written index.
	Save(ctx context.Context, dir string) error
	Len() int
}

// VectorStoreFactory builds and loads vector indexes.
type VectorStoreFactory interface {
	// FromEntries builds a new index from one batch of embedded chunks.
	FromEntries(ctx context.Context, entries []models.EmbeddedChunk) (VectorStore, error)
	// Load reads the index stored under dir. It returns (nil, nil) when dir holds no index.
	Load(ctx context.Context, dir string) (VectorStore, error)
}
