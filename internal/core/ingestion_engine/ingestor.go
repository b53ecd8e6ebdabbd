package ingestion_engine

import "context"

// Ingestor runs ingestion jobs in the background.
type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(job Job) error
	Status(documentID string) (JobStatus, bool)
}
