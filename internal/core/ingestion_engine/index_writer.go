package ingestion_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/core/resilience"
	"github.com/markdave123-py/docvault/internal/metrics"
	"github.com/markdave123-py/docvault/internal/models"
)

// SidecarFile is the name of the chunk listing written next to every index.
const SidecarFile = "chunks.json"

// IndexWriter builds a document's vector index in small batches, merges them
// and persists the result twice: under <baseDir>/doc_<id> and into the
// aggregate index at <baseDir>.
//
// factory:       builds/loads vector indexes.
// baseDir:       aggregate index directory.
// vectorDataDir: sidecar directory.
// batchSize:     entries per index-build call.
// sidecarPerDoc: scope the sidecar by document id.
// retry:         policy for index saves.
// mu:            serializes load-merge-save of the aggregate index.
type IndexWriter struct {
	factory       core.VectorStoreFactory
	baseDir       string
	vectorDataDir string
	batchSize     int
	sidecarPerDoc bool
	retry         resilience.RetryConfig

	mu sync.Mutex
}

// NewIndexWriter builds an IndexWriter from the ingestion settings.
func NewIndexWriter(factory core.VectorStoreFactory, cfg *IngestConfig, retry resilience.RetryConfig) *IndexWriter {
	c := cfg.normalized()
	return &IndexWriter{
		factory:       factory,
		baseDir:       c.IndexDir,
		vectorDataDir: c.VectorDataDir,
		batchSize:     c.IndexBatchSize,
		sidecarPerDoc: c.SidecarPerDocument,
		retry:         retry,
	}
}

// DocumentDir returns the directory of documentID's own index.
func (w *IndexWriter) DocumentDir(documentID string) string {
	return filepath.Join(w.baseDir, "doc_"+documentID)
}

// SidecarPath returns where the chunk listing of documentID is written.
func (w *IndexWriter) SidecarPath(documentID string) string {
	if w.sidecarPerDoc {
		return filepath.Join(w.vectorDataDir, "doc_"+documentID, SidecarFile)
	}
	return filepath.Join(w.vectorDataDir, SidecarFile)
}

// Persist indexes one document's chunks. texts, vectors and metadata are
// parallel slices and every metadata entry must name the same document.
// Nothing is written unless all checks pass and every batch was built.
func (w *IndexWriter) Persist(ctx context.Context, texts []string, vectors [][]float32, metadata []models.ChunkMetadata) error {
	if len(texts) != len(metadata) {
		return core.Validationf("texts and metadata lengths differ: %d != %d", len(texts), len(metadata))
	}
	if len(vectors) != len(texts) {
		return core.Validationf("texts and vectors lengths differ: %d != %d", len(texts), len(vectors))
	}
	if ids := distinctDocumentIDs(metadata); len(ids) > 1 {
		return core.Validationf("a single persist call mixes documents %s", strings.Join(ids, ", "))
	}
	if len(metadata) == 0 || metadata[0].DocumentID == "" {
		return core.ErrDocumentIDMissing
	}
	docID := metadata[0].DocumentID
	if strings.ContainsAny(docID, `/\`) || docID == "." || docID == ".." {
		return core.Validationf("document id %q is not usable as a directory name", docID)
	}

	entries := make([]models.EmbeddedChunk, len(texts))
	for i := range texts {
		entries[i] = models.EmbeddedChunk{
			Chunk:  models.Chunk{Text: texts[i], Metadata: metadata[i]},
			Vector: vectors[i],
		}
	}

	store, err := w.build(ctx, entries)
	if err != nil {
		return err
	}
	if store == nil {
		return core.ErrIndexNotCreated
	}

	if err := w.commit(ctx, docID, store); err != nil {
		return err
	}

	return w.writeSidecar(docID, entries)
}

// build creates one index per batch and merges every later batch into the first.
func (w *IndexWriter) build(ctx context.Context, entries []models.EmbeddedChunk) (core.VectorStore, error) {
	var current core.VectorStore
	for start := 0; start < len(entries); start += w.batchSize {
		end := min(start+w.batchSize, len(entries))

		batch, err := w.factory.FromEntries(ctx, entries[start:end])
		if err != nil {
			return nil, core.Wrap(core.ErrProvider, fmt.Sprintf("build index batch %d-%d", start, end), err)
		}
		metrics.IndexBatches.Inc()

		if current == nil {
			current = batch
			continue
		}
		if batch == nil {
			continue
		}
		if err := current.MergeFrom(ctx, batch); err != nil {
			return nil, core.Wrap(core.ErrProvider, "merge index batch", err)
		}
	}
	return current, nil
}

// commit merges store into the aggregate index in memory and only then saves
// doc_<id> and the aggregate, so a failed merge leaves nothing on disk.
func (w *IndexWriter) commit(ctx context.Context, docID string, store core.VectorStore) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	agg, err := w.mergedAggregate(ctx, docID, store)
	if err != nil {
		return err
	}

	docDir := w.DocumentDir(docID)
	if err := w.save(ctx, store, docDir); err != nil {
		return err
	}
	log.Printf("IndexWriter: saved %d entries for document %s to %s", store.Len(), docID, docDir)

	if err := w.save(ctx, agg, w.baseDir); err != nil {
		return err
	}
	log.Printf("IndexWriter: aggregate index at %s now holds %d entries", w.baseDir, agg.Len())
	return nil
}

// mergedAggregate loads the aggregate index and replaces docID's entries with
// those of store. With no aggregate on disk, store itself becomes the aggregate.
func (w *IndexWriter) mergedAggregate(ctx context.Context, docID string, store core.VectorStore) (core.VectorStore, error) {
	agg, err := w.factory.Load(ctx, w.baseDir)
	if err != nil {
		return nil, core.Wrap(core.ErrPersistence, "load aggregate index", err)
	}
	if agg == nil {
		log.Printf("IndexWriter: creating aggregate index at %s", w.baseDir)
		return store, nil
	}

	if n := agg.RemoveDocument(docID); n > 0 {
		log.Printf("IndexWriter: replacing %d previous entries of document %s", n, docID)
	}
	if err := agg.MergeFrom(ctx, store); err != nil {
		return nil, core.Wrap(core.ErrProvider, "merge into aggregate index", err)
	}
	return agg, nil
}

func (w *IndexWriter) save(ctx context.Context, store core.VectorStore, dir string) error {
	err := resilience.Retry(ctx, w.retry, func() error {
		return store.Save(ctx, dir)
	})
	return core.Wrap(core.ErrPersistence, "save index to "+dir, err)
}

func (w *IndexWriter) writeSidecar(docID string, entries []models.EmbeddedChunk) error {
	listing := make([]models.Chunk, len(entries))
	for i, e := range entries {
		listing[i] = e.Chunk
	}
	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return core.Wrap(core.ErrPersistence, "encode sidecar", err)
	}
	path := w.SidecarPath(docID)
	if err := writeFileAtomic(path, data); err != nil {
		return core.Wrap(core.ErrPersistence, "write sidecar", err)
	}
	return nil
}

func distinctDocumentIDs(metadata []models.ChunkMetadata) []string {
	seen := map[string]struct{}{}
	for _, m := range metadata {
		seen[m.DocumentID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".chunks-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
