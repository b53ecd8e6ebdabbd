package models

import (
	"fmt"
	"time"
)

// ChunkType tells which chunking strategy produced a chunk.
type ChunkType string

const (
	ChunkTypeSection   ChunkType = "section"
	ChunkTypeRecursive ChunkType = "recursive"
	ChunkTypeFull      ChunkType = "full"
)

// TextSource records where a page's text came from.
type TextSource string

const (
	SourceTextLayer TextSource = "text"
	SourceOCR       TextSource = "ocr"
)

// ChunkMetadata is the provenance attached to every chunk. It is the only
// metadata shape that crosses the ingestion boundary.
type ChunkMetadata struct {
	DocumentID string    `json:"documentId"`
	Section    string    `json:"section"`
	ChunkType  ChunkType `json:"chunkType"`
	Filename   string    `json:"filename"`
	PageNumber int       `json:"pageNumber"`
}

// Chunk is a bounded unit of document text. The chunker fills Text, Section,
// ChunkType and DocumentID; the pipeline stamps Filename and PageNumber.
type Chunk struct {
	Text     string        `json:"pageContent"`
	Metadata ChunkMetadata `json:"metadata"`
}

// WithPage returns a copy of the chunk stamped with its page and file.
func (c Chunk) WithPage(filename string, pageNumber int) Chunk {
	c.Metadata.Filename = filename
	c.Metadata.PageNumber = pageNumber
	return c
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// Page is the transient result of extracting one page.
//
// PageNumber: 1-based page index.
// TotalPages: page count of the source document.
// Source:     text layer or OCR.
type Page struct {
	PageNumber int
	Text       string
	TotalPages int
	Source     TextSource
}

// Indicator renders the "Page N/T" label shown next to citations.
func (p Page) Indicator() string {
	return fmt.Sprintf("Page %d/%d", p.PageNumber, p.TotalPages)
}

// DocumentChunk is one row of the pgvector chunk mirror.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	Position   int       `db:"position" json:"position"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"embedding"` // pgvector column
	Section    string    `db:"section" json:"section"`
	ChunkType  string    `db:"chunk_type" json:"chunk_type"`
	Filename   string    `db:"filename" json:"filename"`
	PageNumber int       `db:"page_number" json:"page_number"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
