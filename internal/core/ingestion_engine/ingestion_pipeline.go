package ingestion_engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/metrics"
	"github.com/markdave123-py/docvault/internal/models"
)

// SuccessMessage acknowledges a fully ingested document.
const SuccessMessage = "Embeddings saved with accurate page numbers"

// IngestRequest is one document handed to the pipeline.
type IngestRequest struct {
	DocumentID  string
	Filename    string
	ContentType string
	Data        []byte
}

// IngestResult summarizes a successful ingestion.
type IngestResult struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
	Chunks     int    `json:"chunks"`
	Pages      int    `json:"pages"`
}

// Pipeline extracts, chunks, embeds and indexes one document per call.
// A document is either fully ingested or the call returns an error.
//
// opener:   turns raw bytes into a page-addressable document.
// pages:    per-page text extraction with OCR fallback.
// chunker:  page text -> labeled chunks.
// embedder: chunk texts -> vectors (one provider call per document).
// writer:   batched index construction + dual persistence.
// mirror:   optional relational copy of the chunks (nil = disabled).
// workers:  bounded page-extraction pool.
type Pipeline struct {
	opener   core.DocumentOpener
	pages    *PageExtractor
	chunker  *Chunker
	embedder *Embedder
	writer   *IndexWriter
	mirror   core.ChunkRepository
	workers  int
}

// NewPipeline wires the pipeline stages. mirror may be nil.
func NewPipeline(opener core.DocumentOpener, pages *PageExtractor, chunker *Chunker, embedder *Embedder, writer *IndexWriter, mirror core.ChunkRepository, cfg *IngestConfig) *Pipeline {
	c := cfg.normalized()
	return &Pipeline{
		opener:   opener,
		pages:    pages,
		chunker:  chunker,
		embedder: embedder,
		writer:   writer,
		mirror:   mirror,
		workers:  c.PageWorkers,
	}
}

// Ingest runs the whole pipeline for one document.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (res *IngestResult, err error) {
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.Ingestions.WithLabelValues("failed").Inc()
			log.Printf("IngestionPipeline: document %s failed: %v", req.DocumentID, err)
			return
		}
		metrics.Ingestions.WithLabelValues("ready").Inc()
	}()

	if req.DocumentID == "" {
		return nil, core.ErrDocumentIDMissing
	}
	if len(req.Data) == 0 {
		return nil, core.Validationf("document %s is empty", req.DocumentID)
	}

	doc, err := p.opener.Open(req.Data, req.ContentType)
	if err != nil {
		return nil, core.Wrap(core.ErrExtraction, "open document", err)
	}
	defer doc.Close()

	pages, err := p.pages.ExtractDocument(ctx, doc, p.workers)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, core.Validationf("document %s has no pages", req.DocumentID)
	}

	var (
		texts    []string
		metadata []models.ChunkMetadata
	)
	for _, page := range pages {
		chunks := p.chunker.Chunk(page.Text, req.DocumentID)
		log.Printf("IngestionPipeline: document %s %s (%s): %d chunks", req.DocumentID, page.Indicator(), page.Source, len(chunks))
		for _, c := range chunks {
			c = c.WithPage(req.Filename, page.PageNumber)
			texts = append(texts, c.Text)
			metadata = append(metadata, c.Metadata)
		}
	}
	if len(texts) == 0 {
		return nil, core.Validationf("no text extracted from %s", req.Filename)
	}
	log.Printf("IngestionPipeline: document %s produced %d chunks from %d pages", req.DocumentID, len(texts), len(pages))

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	if err := p.writer.Persist(ctx, texts, vectors, metadata); err != nil {
		return nil, err
	}

	if p.mirror != nil {
		if err := p.mirror.ReplaceDocumentChunks(ctx, req.DocumentID, mirrorRows(texts, vectors, metadata)); err != nil {
			return nil, core.Wrap(core.ErrPersistence, "mirror chunks", err)
		}
	}

	return &IngestResult{
		Message:    SuccessMessage,
		DocumentID: req.DocumentID,
		Chunks:     len(texts),
		Pages:      len(pages),
	}, nil
}

func mirrorRows(texts []string, vectors [][]float32, metadata []models.ChunkMetadata) []models.DocumentChunk {
	now := time.Now().UTC()
	rows := make([]models.DocumentChunk, len(texts))
	for i := range texts {
		rows[i] = models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: metadata[i].DocumentID,
			Position:   i,
			Text:       texts[i],
			Embedding:  vectors[i],
			Section:    metadata[i].Section,
			ChunkType:  string(metadata[i].ChunkType),
			Filename:   metadata[i].Filename,
			PageNumber: metadata[i].PageNumber,
			CreatedAt:  now,
		}
	}
	return rows
}
