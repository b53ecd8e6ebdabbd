package ingestion_engine

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"
)

// TextSplitter splits a text into ordered pieces.
type TextSplitter interface {
	SplitText(text string) ([]string, error)
}

// DefaultSeparators are tried in order: paragraph break, line break, space,
// character boundary.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", " ", ""}
}

// RecursiveSplitter greedily splits on the largest separator present and only
// recurses into finer separators for pieces still longer than ChunkSize.
// Consecutive chunks share up to ChunkOverlap characters.
//
// Separators stay attached to the start of the piece that follows them, and
// lengths are measured in runes.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

var _ TextSplitter = (*RecursiveSplitter)(nil)

// NewRecursiveSplitter returns a splitter with the default separators.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators(),
	}
}

// SplitText returns the chunks of text. It fails when the configuration
// cannot produce bounded chunks.
func (r *RecursiveSplitter) SplitText(text string) ([]string, error) {
	if r.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", r.ChunkSize)
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", r.ChunkOverlap, r.ChunkSize)
	}
	seps := r.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators()
	}
	return r.split(text, seps), nil
}

func (r *RecursiveSplitter) split(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var good []string
	for _, s := range splitKeepingSeparator(text, separator) {
		if length(s) < r.ChunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, r.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, s)
		} else {
			final = append(final, r.split(s, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, r.merge(good)...)
	}
	return final
}

// merge packs small pieces into chunks no longer than ChunkSize, carrying a
// tail of at most ChunkOverlap characters into the next chunk.
func (r *RecursiveSplitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := length(p)
		if total+n > r.ChunkSize {
			if total > r.ChunkSize {
				log.Printf("WARN: Chunker: created a chunk of size %d, which is longer than the specified %d", total, r.ChunkSize)
			}
			if len(current) > 0 {
				if doc := joinPieces(current); doc != "" {
					docs = append(docs, doc)
				}
				for total > r.ChunkOverlap || (total+n > r.ChunkSize && total > 0) {
					total -= length(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := joinPieces(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits before every occurrence of sep. An empty sep
// splits into runes. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var out []string
	if sep == "" {
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	rest := text
	for {
		i := strings.Index(rest[min(len(sep), len(rest)):], sep)
		if i < 0 {
			break
		}
		i += min(len(sep), len(rest))
		if i > 0 {
			out = append(out, rest[:i])
		}
		rest = rest[i:]
	}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
