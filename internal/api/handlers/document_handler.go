package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/core/ingestion_engine"
	"github.com/markdave123-py/docvault/internal/models"
)

// maxUploadSize bounds a multipart upload.
const maxUploadSize = 64 << 20

// SyncIngestTimeout bounds a synchronous ingestion, OCR-heavy documents included.
const SyncIngestTimeout = 10 * time.Minute

// DocumentPipeline runs a synchronous ingestion.
type DocumentPipeline interface {
	Ingest(ctx context.Context, req ingestion_engine.IngestRequest) (*ingestion_engine.IngestResult, error)
}

type DocumentHandler struct {
	pipeline     DocumentPipeline
	ingestor     ingestion_engine.Ingestor
	objectclient core.ObjectClient
	chunks       core.ChunkRepository
	bucket       string
}

// NewDocumentHandler wires the handler. objectclient and chunks may be nil
// when S3 or the pgvector mirror is not configured.
func NewDocumentHandler(pipeline DocumentPipeline, ing ingestion_engine.Ingestor, objectclient core.ObjectClient, chunks core.ChunkRepository, bucket string) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline, ingestor: ing, objectclient: objectclient, chunks: chunks, bucket: bucket}
}

// IngestDocument accepts a multipart upload (field "file", optional
// "document_id"). It ingests synchronously unless ?async=true.
func (h *DocumentHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	docID := r.FormValue("document_id")
	if docID == "" {
		docID = uuid.NewString()
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req := ingestion_engine.IngestRequest{
		DocumentID:  docID,
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
		Data:        data,
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueueUpload(r.Context(), w, req)
		return
	}

	// A client that goes away stops waiting; the ingestion still completes.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), SyncIngestTimeout)
	defer cancel()

	res, err := h.pipeline.Ingest(ctx, req)
	if err != nil {
		writeIngestError(w, docID, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// enqueueUpload parks the bytes in object storage when available, so the
// queue only holds a key, and schedules the job.
func (h *DocumentHandler) enqueueUpload(ctx context.Context, w http.ResponseWriter, req ingestion_engine.IngestRequest) {
	job := ingestion_engine.Job{Request: req}

	if h.objectclient != nil {
		key := fmt.Sprintf("documents/%s/%s", req.DocumentID, req.Filename)
		uploadctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if _, err := h.objectclient.UploadFile(uploadctx, h.bucket, key, req.Data, req.ContentType); err != nil {
			log.Printf("DocumentHandler: upload of %s failed: %v", req.DocumentID, err)
			writeError(w, http.StatusBadGateway, "upload failed")
			return
		}
		job.Request.Data = nil
		job.Bucket, job.Key = h.bucket, key
	}

	if err := h.ingestor.Enqueue(job); err != nil {
		writeIngestError(w, req.DocumentID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"documentId": req.DocumentID, "status": ingestion_engine.StateQueued})
}

type ingestObjectRequest struct {
	DocumentID  string `json:"documentId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	URL         string `json:"url"`
}

// IngestObject enqueues a document already stored in S3, addressed by
// bucket/key or by its virtual-hosted URL.
func (h *DocumentHandler) IngestObject(w http.ResponseWriter, r *http.Request) {
	if h.objectclient == nil {
		writeError(w, http.StatusNotImplemented, "object storage is not configured")
		return
	}

	var body ingestObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.URL != "" {
		bucket, key, err := ingestion_engine.ParseS3URL(body.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		body.Bucket, body.Key = bucket, key
	}
	if body.Key == "" {
		writeError(w, http.StatusBadRequest, "key or url is required")
		return
	}
	if body.Bucket == "" {
		body.Bucket = h.bucket
	}
	if body.DocumentID == "" {
		body.DocumentID = uuid.NewString()
	}

	job := ingestion_engine.Job{
		Request: ingestion_engine.IngestRequest{
			DocumentID:  body.DocumentID,
			Filename:    body.Filename,
			ContentType: body.ContentType,
		},
		Bucket: body.Bucket,
		Key:    body.Key,
	}
	if err := h.ingestor.Enqueue(job); err != nil {
		writeIngestError(w, body.DocumentID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"documentId": body.DocumentID, "status": ingestion_engine.StateQueued})
}

// DocumentStatus reports the state of a background ingestion. Documents the
// queue no longer tracks (e.g. after a restart) are looked up in the mirror.
func (h *DocumentHandler) DocumentStatus(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")
	if st, ok := h.ingestor.Status(docID); ok {
		writeJSON(w, http.StatusOK, st)
		return
	}
	if h.chunks == nil {
		writeError(w, http.StatusNotFound, "unknown document")
		return
	}

	rows, err := h.chunks.GetChunksByDocument(r.Context(), docID)
	if err != nil {
		log.Printf("DocumentHandler: chunk lookup for %s failed: %v", docID, err)
		writeError(w, http.StatusInternalServerError, "could not read document status")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "unknown document")
		return
	}
	writeJSON(w, http.StatusOK, statusFromRows(docID, rows))
}

// statusFromRows summarizes mirrored chunk rows as a finished ingestion.
func statusFromRows(docID string, rows []models.DocumentChunk) ingestion_engine.JobStatus {
	st := ingestion_engine.JobStatus{DocumentID: docID, State: ingestion_engine.StateReady, Chunks: len(rows)}
	pages := map[int]struct{}{}
	for _, row := range rows {
		pages[row.PageNumber] = struct{}{}
		if row.CreatedAt.After(st.UpdatedAt) {
			st.UpdatedAt = row.CreatedAt
		}
	}
	st.Pages = len(pages)
	return st
}

func writeIngestError(w http.ResponseWriter, docID string, err error) {
	log.Printf("DocumentHandler: ingestion of %s failed: %v", docID, err)
	switch {
	case errors.Is(err, ingestion_engine.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "ingestion queue is full")
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "document ingestion timed out")
	default:
		writeError(w, http.StatusInternalServerError, "document ingestion failed")
	}
}
