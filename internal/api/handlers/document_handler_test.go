package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/core/ingestion_engine"
	"github.com/markdave123-py/docvault/internal/models"
)

type fakePipeline struct {
	got    ingestion_engine.IngestRequest
	gotCtx context.Context
	err    error
}

func (p *fakePipeline) Ingest(ctx context.Context, req ingestion_engine.IngestRequest) (*ingestion_engine.IngestResult, error) {
	p.got = req
	p.gotCtx = ctx
	if p.err != nil {
		return nil, p.err
	}
	return &ingestion_engine.IngestResult{Message: ingestion_engine.SuccessMessage, DocumentID: req.DocumentID, Chunks: 3, Pages: 2}, nil
}

type fakeIngestor struct {
	jobs     []ingestion_engine.Job
	err      error
	statuses map[string]ingestion_engine.JobStatus
}

func (f *fakeIngestor) Start(context.Context, int) {}

func (f *fakeIngestor) Enqueue(job ingestion_engine.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeIngestor) Status(id string) (ingestion_engine.JobStatus, bool) {
	st, ok := f.statuses[id]
	return st, ok
}

type fakeObjects struct {
	uploaded map[string][]byte
}

func (o *fakeObjects) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	o.uploaded[bucket+"/"+key] = data
	return "https://" + bucket + ".s3.test.amazonaws.com/" + key, nil
}

func (o *fakeObjects) GetFile(context.Context, string, string) ([]byte, error) { return nil, nil }

func multipartRequest(t *testing.T, target, docID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if docID != "" {
		require.NoError(t, mw.WriteField("document_id", docID))
	}
	fw, err := mw.CreateFormFile("file", "../../etc/contract.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.7 body"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIngestDocument_Sync(t *testing.T) {
	p := &fakePipeline{}
	h := NewDocumentHandler(p, &fakeIngestor{}, nil, nil, "")
	rec := httptest.NewRecorder()

	h.IngestDocument(rec, multipartRequest(t, "/api/documents/ingest", "doc-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var res ingestion_engine.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Embeddings saved with accurate page numbers", res.Message)
	assert.Equal(t, "doc-1", res.DocumentID)
	assert.Equal(t, "contract.pdf", p.got.Filename)
	assert.Equal(t, []byte("%PDF-1.7 body"), p.got.Data)
}

func TestIngestDocument_GeneratesDocumentID(t *testing.T) {
	p := &fakePipeline{}
	h := NewDocumentHandler(p, &fakeIngestor{}, nil, nil, "")

	h.IngestDocument(httptest.NewRecorder(), multipartRequest(t, "/api/documents/ingest", ""))

	assert.Len(t, p.got.DocumentID, 36)
}

func TestIngestDocument_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", core.Validationf("no text extracted"), http.StatusBadRequest},
		{"timeout", core.Wrap(core.ErrProvider, "embed", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", core.Wrap(core.ErrPersistence, "save", assert.AnError), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDocumentHandler(&fakePipeline{err: tt.err}, &fakeIngestor{}, nil, nil, "")
			rec := httptest.NewRecorder()

			h.IngestDocument(rec, multipartRequest(t, "/api/documents/ingest", "d"))

			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestIngestDocument_AsyncWithoutObjectStorage(t *testing.T) {
	ing := &fakeIngestor{}
	h := NewDocumentHandler(&fakePipeline{}, ing, nil, nil, "")
	rec := httptest.NewRecorder()

	h.IngestDocument(rec, multipartRequest(t, "/api/documents/ingest?async=true", "d"))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ing.jobs, 1)
	assert.NotEmpty(t, ing.jobs[0].Request.Data)
	assert.Empty(t, ing.jobs[0].Key)
}

func TestIngestDocument_AsyncUploadsToObjectStorage(t *testing.T) {
	ing := &fakeIngestor{}
	obj := &fakeObjects{uploaded: map[string][]byte{}}
	h := NewDocumentHandler(&fakePipeline{}, ing, obj, nil, "docs-bucket")
	rec := httptest.NewRecorder()

	h.IngestDocument(rec, multipartRequest(t, "/api/documents/ingest?async=1", "d"))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ing.jobs, 1)
	assert.Nil(t, ing.jobs[0].Request.Data)
	assert.Equal(t, "docs-bucket", ing.jobs[0].Bucket)
	assert.Equal(t, "documents/d/contract.pdf", ing.jobs[0].Key)
	assert.Contains(t, obj.uploaded, "docs-bucket/documents/d/contract.pdf")
}

func TestIngestDocument_QueueFull(t *testing.T) {
	h := NewDocumentHandler(&fakePipeline{}, &fakeIngestor{err: ingestion_engine.ErrQueueFull}, nil, nil, "")
	rec := httptest.NewRecorder()

	h.IngestDocument(rec, multipartRequest(t, "/api/documents/ingest?async=true", "d"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestObject(t *testing.T) {
	ing := &fakeIngestor{}
	h := NewDocumentHandler(&fakePipeline{}, ing, &fakeObjects{}, nil, "default-bucket")
	body := `{"documentId":"d","url":"https://b.s3.us-east-2.amazonaws.com/x/y.pdf"}`
	rec := httptest.NewRecorder()

	h.IngestObject(rec, httptest.NewRequest(http.MethodPost, "/api/documents/ingest-object", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ing.jobs, 1)
	assert.Equal(t, "b", ing.jobs[0].Bucket)
	assert.Equal(t, "x/y.pdf", ing.jobs[0].Key)
}

func TestIngestObject_RequiresObjectStorage(t *testing.T) {
	h := NewDocumentHandler(&fakePipeline{}, &fakeIngestor{}, nil, nil, "")
	rec := httptest.NewRecorder()

	h.IngestObject(rec, httptest.NewRequest(http.MethodPost, "/api/documents/ingest-object", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDocumentStatus(t *testing.T) {
	ing := &fakeIngestor{statuses: map[string]ingestion_engine.JobStatus{
		"d": {DocumentID: "d", State: ingestion_engine.StateReady, Chunks: 4},
	}}
	h := NewDocumentHandler(&fakePipeline{}, ing, nil, nil, "")
	r := chi.NewRouter()
	r.Get("/api/documents/{documentID}/status", h.DocumentStatus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/d/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestDocument_ClientDisconnectDoesNotCancelIngestion(t *testing.T) {
	p := &fakePipeline{}
	h := NewDocumentHandler(p, &fakeIngestor{}, nil, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := multipartRequest(t, "/api/documents/ingest", "42").WithContext(ctx)
	rec := httptest.NewRecorder()

	h.IngestDocument(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p.gotCtx)
	assert.NoError(t, p.gotCtx.Err())
	_, hasDeadline := p.gotCtx.Deadline()
	assert.True(t, hasDeadline)
}

type fakeChunks struct {
	rows map[string][]models.DocumentChunk
	err  error
}

func (f *fakeChunks) ReplaceDocumentChunks(context.Context, string, []models.DocumentChunk) error {
	return nil
}

func (f *fakeChunks) GetChunksByDocument(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	return f.rows[documentID], f.err
}

func (f *fakeChunks) Close() error { return nil }

func TestDocumentStatus_FallsBackToChunkMirror(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	chunks := &fakeChunks{rows: map[string][]models.DocumentChunk{
		"old": {
			{DocumentID: "old", Position: 0, PageNumber: 1, CreatedAt: created},
			{DocumentID: "old", Position: 1, PageNumber: 1, CreatedAt: created},
			{DocumentID: "old", Position: 2, PageNumber: 3, CreatedAt: created},
		},
	}}
	h := NewDocumentHandler(&fakePipeline{}, &fakeIngestor{}, nil, chunks, "")
	r := chi.NewRouter()
	r.Get("/api/documents/{documentID}/status", h.DocumentStatus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/old/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st ingestion_engine.JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, ingestion_engine.StateReady, st.State)
	assert.Equal(t, 3, st.Chunks)
	assert.Equal(t, 2, st.Pages)
	assert.True(t, created.Equal(st.UpdatedAt))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/unknown/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	chunks.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/old/status", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
