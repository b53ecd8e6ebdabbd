package ingestion_engine

import "time"

// IngestConfig tunes the ingestion pipeline.
//
// ChunkSize:          recursive splitter target size in characters (e.g., 1000).
// ChunkOverlap:       characters shared by consecutive recursive chunks (e.g., 200).
// MaxChunkTokens:     section chunks above this token count are dropped (8192).
// IndexBatchSize:     chunks per index-build call before merging (3).
// IndexDir:           base directory of the aggregate index; documents go to doc_<id> below it.
// VectorDataDir:      directory of the chunks.json sidecar.
// SidecarPerDocument: write the sidecar to <VectorDataDir>/doc_<id>/ instead of one shared file.
// OCRLanguages:       tesseract languages for the OCR fallback.
// OCRScale:           raster upscale factor before OCR.
// OCRTimeout:         deadline for one OCR pass (0 = none).
// EmbedTimeout:       deadline for the embedding call (0 = none).
// EmbedDim:           expected vector dimension (0 = accept whatever the provider returns).
// PageWorkers:        bounded page-extraction pool; 1 keeps extraction strictly sequential.
// QueueSize:          capacity of the background job queue.
type IngestConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	MaxChunkTokens     int
	IndexBatchSize     int
	IndexDir           string
	VectorDataDir      string
	SidecarPerDocument bool
	OCRLanguages       []string
	OCRScale           float64
	OCRTimeout         time.Duration
	EmbedTimeout       time.Duration
	EmbedDim           int
	PageWorkers        int
	QueueSize          int
}

// DefaultIngestConfig returns the reference settings.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:          1000,
		ChunkOverlap:       200,
		MaxChunkTokens:     8192,
		IndexBatchSize:     3,
		IndexDir:           "faiss_index",
		VectorDataDir:      "vector-data",
		SidecarPerDocument: true,
		OCRLanguages:       []string{"deu", "eng"},
		OCRScale:           DefaultRenderScale,
		OCRTimeout:         2 * time.Minute,
		EmbedTimeout:       60 * time.Second,
		PageWorkers:        1,
		QueueSize:          64,
	}
}

// normalized fills zero values with defaults without touching the caller's copy.
func (c *IngestConfig) normalized() IngestConfig {
	def := DefaultIngestConfig()
	if c == nil {
		return *def
	}
	out := *c
	if out.ChunkSize <= 0 {
		out.ChunkSize = def.ChunkSize
	}
	if out.ChunkOverlap < 0 {
		out.ChunkOverlap = def.ChunkOverlap
	}
	if out.MaxChunkTokens <= 0 {
		out.MaxChunkTokens = def.MaxChunkTokens
	}
	if out.IndexBatchSize <= 0 {
		out.IndexBatchSize = def.IndexBatchSize
	}
	if out.IndexDir == "" {
		out.IndexDir = def.IndexDir
	}
	if out.VectorDataDir == "" {
		out.VectorDataDir = def.VectorDataDir
	}
	if len(out.OCRLanguages) == 0 {
		out.OCRLanguages = def.OCRLanguages
	}
	if out.OCRScale <= 0 {
		out.OCRScale = def.OCRScale
	}
	if out.PageWorkers <= 0 {
		out.PageWorkers = 1
	}
	if out.QueueSize <= 0 {
		out.QueueSize = def.QueueSize
	}
	return out
}
