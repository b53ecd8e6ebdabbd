package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/core/resilience"
	"github.com/markdave123-py/docvault/internal/models"
)

type pipelineFixture struct {
	pipeline *Pipeline
	doc      *fakeDocument
	ocr      *countingOCR
	provider *recordingProvider
	factory  *countingFactory
	mirror   *recordingMirror
	cfg      *IngestConfig
}

type recordingMirror struct {
	rows map[string][]models.DocumentChunk
	err  error
}

func (m *recordingMirror) ReplaceDocumentChunks(_ context.Context, documentID string, rows []models.DocumentChunk) error {
	if m.err != nil {
		return m.err
	}
	m.rows[documentID] = rows
	return nil
}

func (m *recordingMirror) GetChunksByDocument(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	return m.rows[documentID], nil
}

func (m *recordingMirror) Close() error { return nil }

func newPipelineFixture(t *testing.T, pages ...*fakePage) *pipelineFixture {
	t.Helper()
	root := t.TempDir()
	cfg := &IngestConfig{
		IndexDir:           filepath.Join(root, "faiss_index"),
		VectorDataDir:      filepath.Join(root, "vector-data"),
		SidecarPerDocument: true,
		PageWorkers:        2,
	}
	fx := &pipelineFixture{
		doc:      &fakeDocument{pages: pages},
		ocr:      &countingOCR{text: "World"},
		provider: &recordingProvider{dim: 4},
		factory:  newCountingFactory(),
		mirror:   &recordingMirror{rows: map[string][]models.DocumentChunk{}},
		cfg:      cfg,
	}
	fx.pipeline = NewPipeline(
		&fakeOpener{doc: fx.doc},
		NewPageExtractor(fx.ocr, cfg.OCRLanguages, cfg.OCRScale, 0),
		NewChunker(wordCounter{}, nil, 0),
		NewEmbedder(fx.provider, 0, 4),
		NewIndexWriter(fx.factory, cfg, resilience.RetryConfig{MaxAttempts: 1}),
		fx.mirror,
		cfg,
	)
	return fx
}

func TestIngest_NativeAndScannedPages(t *testing.T) {
	fx := newPipelineFixture(t, &fakePage{text: "Hello"}, &fakePage{text: "   "})

	res, err := fx.pipeline.Ingest(context.Background(), IngestRequest{
		DocumentID: "doc-9", Filename: "greeting.pdf", ContentType: "application/pdf", Data: []byte("%PDF"),
	})

	require.NoError(t, err)
	assert.Equal(t, SuccessMessage, res.Message)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, fx.ocr.calls)
	assert.Equal(t, 1, fx.provider.calls)
	assert.Equal(t, []string{"Hello", "World"}, fx.provider.texts)
	assert.True(t, fx.doc.closed)

	saved := fx.factory.saved[filepath.Join(fx.cfg.IndexDir, "doc_doc-9")]
	require.Len(t, saved, 2)
	assert.Equal(t, 1, saved[0].Chunk.Metadata.PageNumber)
	assert.Equal(t, 2, saved[1].Chunk.Metadata.PageNumber)
	assert.Equal(t, "greeting.pdf", saved[1].Chunk.Metadata.Filename)
	assert.Equal(t, "doc-9", saved[1].Chunk.Metadata.DocumentID)

	rows := fx.mirror.rows["doc-9"]
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[1].PageNumber)
	assert.Len(t, rows[1].Embedding, 4)
}

func TestIngest_PreservesPageOrderWithWorkers(t *testing.T) {
	pages := make([]*fakePage, 6)
	for i := range pages {
		pages[i] = &fakePage{text: fmt.Sprintf("page %d", i+1)}
	}
	fx := newPipelineFixture(t, pages...)

	_, err := fx.pipeline.Ingest(context.Background(), IngestRequest{DocumentID: "d", Filename: "f.pdf", Data: []byte("x")})

	require.NoError(t, err)
	require.Len(t, fx.provider.texts, 6)
	for i, text := range fx.provider.texts {
		assert.Equal(t, fmt.Sprintf("page %d", i+1), text)
	}
}

func TestIngest_ExtractionFailureAbortsDocument(t *testing.T) {
	fx := newPipelineFixture(t, &fakePage{text: "fine"}, &fakePage{})
	fx.ocr.err = errors.New("ocr down")

	_, err := fx.pipeline.Ingest(context.Background(), IngestRequest{DocumentID: "d", Filename: "f.pdf", Data: []byte("x")})

	require.ErrorIs(t, err, core.ErrExtraction)
	assert.Zero(t, fx.provider.calls)
	assert.Empty(t, fx.factory.savedDirs())
}

func TestIngest_ProviderFailureAbortsDocument(t *testing.T) {
	fx := newPipelineFixture(t, &fakePage{text: "fine"})
	fx.provider.err = errors.New("quota exceeded")

	_, err := fx.pipeline.Ingest(context.Background(), IngestRequest{DocumentID: "d", Filename: "f.pdf", Data: []byte("x")})

	require.ErrorIs(t, err, core.ErrProvider)
	assert.Empty(t, fx.factory.savedDirs())
}

func TestIngest_NoTextIsValidationError(t *testing.T) {
	fx := newPipelineFixture(t, &fakePage{text: ""})
	fx.ocr.text = "   "

	_, err := fx.pipeline.Ingest(context.Background(), IngestRequest{DocumentID: "d", Filename: "f.pdf", Data: []byte("x")})

	require.ErrorIs(t, err, core.ErrValidation)
	assert.Zero(t, fx.provider.calls)
}

func TestIngest_RequiresDocumentID(t *testing.T) {
	fx := newPipelineFixture(t, &fakePage{text: "x"})

	_, err := fx.pipeline.Ingest(context.Background(), IngestRequest{Data: []byte("x")})

	require.ErrorIs(t, err, core.ErrDocumentIDMissing)
}

func TestIngest_MirrorFailureSurfaces(t *testing.T) {
	fx := newPipelineFixture(t, &fakePage{text: "x"})
	fx.mirror.err = errors.New("db gone")

	_, err := fx.pipeline.Ingest(context.Background(), IngestRequest{DocumentID: "d", Filename: "f.pdf", Data: []byte("x")})

	require.ErrorIs(t, err, core.ErrPersistence)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	e := NewEmbedder(&recordingProvider{dim: 3}, 0, 4)

	_, err := e.Embed(context.Background(), []string{"a"})

	require.ErrorIs(t, err, core.ErrProvider)
}

func TestEmbedder_EmptyInputSkipsProvider(t *testing.T) {
	p := &recordingProvider{dim: 3}

	vecs, err := NewEmbedder(p, 0, 0).Embed(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Zero(t, p.calls)
}
