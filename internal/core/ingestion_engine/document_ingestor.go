package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/docvault/internal/core"
)

// Job states reported by DocumentIngestor.Status.
const (
	StateQueued     = "queued"
	StateProcessing = "processing"
	StateReady      = "ready"
	StateFailed     = "failed"
)

// ErrQueueFull is returned by Enqueue when the job queue has no free slot.
var ErrQueueFull = errors.New("ingestion queue is full")

// jobTimeout bounds one background ingestion.
const jobTimeout = 10 * time.Minute

// Job is a document waiting for background ingestion. When Request.Data is
// empty the bytes are fetched from object storage at Bucket/Key.
type Job struct {
	Request IngestRequest
	Bucket  string
	Key     string
}

// JobStatus is the last known state of a document's ingestion.
type JobStatus struct {
	DocumentID string    `json:"documentId"`
	State      string    `json:"status"`
	Chunks     int       `json:"chunks,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DocumentIngestor runs the pipeline for queued jobs on a pool of workers.
//
// pipeline: ingestion pipeline shared by all workers.
// obj:      object storage for jobs that only carry a key (nil = byte jobs only).
// jobs:     bounded in-memory queue (easy to swap with a broker later).
// statuses: per-document state, guarded by mu.
type DocumentIngestor struct {
	pipeline *Pipeline
	obj      core.ObjectClient
	jobs     chan Job

	mu       sync.RWMutex
	statuses map[string]JobStatus
}

var _ Ingestor = (*DocumentIngestor)(nil)

// NewDocumentIngestor constructs the ingestor with a bounded job queue.
func NewDocumentIngestor(pipeline *Pipeline, obj core.ObjectClient, cfg *IngestConfig) *DocumentIngestor {
	c := cfg.normalized()
	return &DocumentIngestor{
		pipeline: pipeline,
		obj:      obj,
		jobs:     make(chan Job, c.QueueSize),
		statuses: map[string]JobStatus{},
	}
}

// Start runs numWorkers goroutines reading from the job queue until ctx is done.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("DocumentIngestor: worker %d shutting down.", w)
					return
				case job := <-i.jobs:
					log.Printf("DocumentIngestor: processing document %s by worker %d", job.Request.DocumentID, w)
					if err := i.processOne(ctx, job); err != nil {
						log.Printf("DocumentIngestor: error processing document %s: %v", job.Request.DocumentID, err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a job. It never blocks; a full queue yields ErrQueueFull.
func (i *DocumentIngestor) Enqueue(job Job) error {
	id := job.Request.DocumentID
	if id == "" {
		return core.ErrDocumentIDMissing
	}
	if len(job.Request.Data) == 0 && job.Key == "" {
		return core.Validationf("job %s carries neither bytes nor an object key", id)
	}
	if len(job.Request.Data) == 0 && i.obj == nil {
		return core.Validationf("job %s needs object storage, which is not configured", id)
	}

	// queued must be visible before a worker can pick the job up and move it on.
	prev, had := i.swapStatus(JobStatus{DocumentID: id, State: StateQueued})
	select {
	case i.jobs <- job:
		return nil
	default:
		i.mu.Lock()
		if had {
			i.statuses[id] = prev
		} else {
			delete(i.statuses, id)
		}
		i.mu.Unlock()
		return ErrQueueFull
	}
}

// Status reports the last known state of documentID.
func (i *DocumentIngestor) Status(documentID string) (JobStatus, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	st, ok := i.statuses[documentID]
	return st, ok
}

// processOne fetches the bytes if needed and runs the pipeline for one job.
func (i *DocumentIngestor) processOne(ctx context.Context, job Job) error {
	proctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	id := job.Request.DocumentID
	i.setStatus(JobStatus{DocumentID: id, State: StateProcessing})

	fail := func(err error) error {
		i.setStatus(JobStatus{DocumentID: id, State: StateFailed, Error: err.Error()})
		return err
	}

	req := job.Request
	if len(req.Data) == 0 {
		data, err := i.obj.GetFile(proctx, job.Bucket, job.Key)
		if err != nil {
			return fail(core.Wrap(core.ErrExtraction, "get object "+job.Key, err))
		}
		req.Data = data
		if req.Filename == "" {
			req.Filename = objectName(job.Key)
		}
	}

	res, err := i.pipeline.Ingest(proctx, req)
	if err != nil {
		return fail(err)
	}
	i.setStatus(JobStatus{DocumentID: id, State: StateReady, Chunks: res.Chunks, Pages: res.Pages})
	return nil
}

func (i *DocumentIngestor) setStatus(st JobStatus) {
	i.swapStatus(st)
}

// swapStatus records st and returns the status it replaced.
func (i *DocumentIngestor) swapStatus(st JobStatus) (JobStatus, bool) {
	st.UpdatedAt = time.Now().UTC()
	i.mu.Lock()
	defer i.mu.Unlock()
	prev, ok := i.statuses[st.DocumentID]
	i.statuses[st.DocumentID] = st
	return prev, ok
}

// ParseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL.
// Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func ParseS3URL(u string) (bucket, key string, err error) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	if len(hostPath) != 2 || hostPath[1] == "" {
		return "", "", fmt.Errorf("%w: %q has no object key", core.ErrValidation, u)
	}
	host := hostPath[0]
	if !strings.Contains(host, ".s3.") {
		return "", "", fmt.Errorf("%w: %q is not an S3 URL", core.ErrValidation, u)
	}
	return strings.SplitN(host, ".", 2)[0], hostPath[1], nil
}

func objectName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
