package core

import (
	"context"

	"github.com/markdave123-py/docvault/internal/models"
)

// ChunkRepository mirrors ingested chunks into a relational store.
// It abstracts Postgres/pgvector so the pipeline never depends on a specific DB.
type ChunkRepository interface {
	// ReplaceDocumentChunks removes every chunk of documentID and inserts rows in one transaction.
	ReplaceDocumentChunks(ctx context.Context, documentID string, rows []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// An empty bucket means the client's default bucket.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
