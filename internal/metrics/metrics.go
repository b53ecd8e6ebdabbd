// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docvault"

var (
	PagesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_extracted_total",
		Help:      "Pages extracted, by text source (text layer or OCR).",
	}, []string{"source"})

	ChunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_dropped_total",
		Help:      "Section chunks rejected by the token budget check.",
	})

	ChunkerFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunker_fallbacks_total",
		Help:      "Recursive splitter failures degraded to a single full-text chunk.",
	})

	Ingestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestions_total",
		Help:      "Document ingestions, by outcome.",
	}, []string{"status"})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "End-to-end duration of one document ingestion.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
	})

	IndexBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_batches_total",
		Help:      "Index build calls issued by the index writer.",
	})
)
