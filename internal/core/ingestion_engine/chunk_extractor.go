package ingestion_engine

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/metrics"
	"github.com/markdave123-py/docvault/internal/models"
)

// sectionMarker is a pilcrow-style section sign immediately followed by a numeral.
var sectionMarker = regexp.MustCompile(`§\d`)

// Chunker splits page text into labeled chunks.
//
// counter:   tokenizer matching the target embedding model.
// splitter:  recursive splitter used when the text has no section markers.
// maxTokens: largest section chunk the embedding model accepts.
type Chunker struct {
	counter   core.TokenCounter
	splitter  TextSplitter
	maxTokens int
}

// NewChunker builds a chunker. A nil splitter gets the default recursive
// splitter (1000 characters, 200 overlap).
func NewChunker(counter core.TokenCounter, splitter TextSplitter, maxTokens int) *Chunker {
	if splitter == nil {
		splitter = NewRecursiveSplitter(1000, 200)
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &Chunker{counter: counter, splitter: splitter, maxTokens: maxTokens}
}

// Chunk splits text into chunks for documentID. Blank text yields no chunks.
//
// Text with section markers is split before every marker. Non-empty segments
// with 1..maxTokens tokens become "section" chunks labeled §1..§n in order;
// the others are dropped. Other text goes through the recursive splitter, and
// if that fails the whole text becomes one "full" chunk.
func (c *Chunker) Chunk(text string, documentID any) []models.Chunk {
	clean := strings.TrimSpace(text)
	docID := fmt.Sprint(documentID)
	if clean == "" {
		log.Printf("WARN: Chunker: received empty or blank text for document %s", docID)
		return nil
	}

	if sectionMarker.MatchString(clean) {
		return c.sectionChunks(clean, docID)
	}

	chunks, err := c.recursiveChunks(clean, docID)
	if err == nil {
		return chunks
	}
	log.Printf("Chunker: %v; falling back to full text for document %s", err, docID)
	metrics.ChunkerFallbacks.Inc()
	return []models.Chunk{{
		Text: clean,
		Metadata: models.ChunkMetadata{
			DocumentID: docID,
			Section:    "full-text",
			ChunkType:  models.ChunkTypeFull,
		},
	}}
}

func (c *Chunker) sectionChunks(text, docID string) []models.Chunk {
	var out []models.Chunk
	for i, seg := range splitBeforeMarkers(text) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if err := c.validate(seg, fmt.Sprintf("segment %d", i+1)); err != nil {
			log.Printf("WARN: Chunker: skipping chunk of document %s: %v", docID, err)
			metrics.ChunksDropped.Inc()
			continue
		}
		out = append(out, models.Chunk{
			Text: seg,
			Metadata: models.ChunkMetadata{
				DocumentID: docID,
				Section:    fmt.Sprintf("§%d", len(out)+1),
				ChunkType:  models.ChunkTypeSection,
			},
		})
	}
	return out
}

func (c *Chunker) validate(text, section string) error {
	tokens := c.counter.CountTokens(text)
	if tokens == 0 || tokens > c.maxTokens {
		return &core.ChunkValidationError{Section: section, Tokens: tokens, Limit: c.maxTokens}
	}
	return nil
}

func (c *Chunker) recursiveChunks(text, docID string) ([]models.Chunk, error) {
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, &core.SplitterFault{Err: err}
	}
	out := make([]models.Chunk, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, models.Chunk{
			Text: p,
			Metadata: models.ChunkMetadata{
				DocumentID: docID,
				Section:    fmt.Sprintf("chunk-%d", len(out)+1),
				ChunkType:  models.ChunkTypeRecursive,
			},
		})
	}
	return out, nil
}

// splitBeforeMarkers cuts text right before every section marker, so each
// marker starts the segment that follows it.
func splitBeforeMarkers(text string) []string {
	locs := sectionMarker.FindAllStringIndex(text, -1)
	segments := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		if loc[0] > start {
			segments = append(segments, text[start:loc[0]])
		}
		start = loc[0]
	}
	return append(segments, text[start:])
}
