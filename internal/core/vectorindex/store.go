// Package vectorindex is an in-memory vector index persisted to a bbolt file.
package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/models"
)

// FileName is the index file written inside an index directory.
const FileName = "index.db"

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")
	keyDimension  = []byte("dimension")
	keySavedAt    = []byte("saved_at")
)

// storedEntry is the on-disk form of one embedded chunk.
type storedEntry struct {
	Text     string               `json:"t"`
	Metadata models.ChunkMetadata `json:"m"`
	Vector   []float32            `json:"v"`
}

// Store holds embedded chunks in insertion order. All vectors share one dimension.
type Store struct {
	mu        sync.RWMutex
	dimension int
	entries   []models.EmbeddedChunk
}

var _ core.VectorStore = (*Store)(nil)

// New returns an empty store. A zero dimension is fixed by the first entry.
func New(dimension int) *Store {
	return &Store{dimension: dimension}
}

// FromEntries builds a store from one batch.
func FromEntries(entries []models.EmbeddedChunk) (*Store, error) {
	s := New(0)
	if err := s.add(entries); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) add(entries []models.EmbeddedChunk) error {
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %d has an empty vector", i)
		}
		if s.dimension == 0 {
			s.dimension = len(e.Vector)
		}
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(e.Vector))
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

// Dimension returns the vector length of the store (0 while empty).
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MergeFrom appends the entries of other, which must be a *Store of the same dimension.
func (s *Store) MergeFrom(_ context.Context, other core.VectorStore) error {
	o, ok := other.(*Store)
	if !ok {
		return fmt.Errorf("cannot merge %T into vectorindex.Store", other)
	}
	if o == s {
		return errors.New("cannot merge a store into itself")
	}

	o.mu.RLock()
	entries := append([]models.EmbeddedChunk(nil), o.entries...)
	o.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(entries)
}

// RemoveDocument drops every entry of documentID.
func (s *Store) RemoveDocument(documentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Chunk.Metadata.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	clear(s.entries[len(kept):])
	s.entries = kept
	return removed
}

// Save writes the store to dir/index.db. The file is built under a temporary
// name and renamed into place, so readers see either the old or the new index.
func (s *Store) Save(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "index-*.db.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	db, err := bbolt.Open(tmpPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open bolt db: %w", err)
	}

	s.mu.RLock()
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyDimension, []byte(strconv.Itoa(s.dimension))); err != nil {
			return err
		}
		if err := meta.Put(keySavedAt, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
			return err
		}

		b, err := tx.CreateBucketIfNotExists(bucketEntries)
		if err != nil {
			return err
		}
		for i, e := range s.entries {
			data, err := json.Marshal(storedEntry{Text: e.Chunk.Text, Metadata: e.Chunk.Metadata, Vector: e.Vector})
			if err != nil {
				return err
			}
			if err := b.Put(entryKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
	s.mu.RUnlock()

	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write bolt db: %w", err)
	}
	return os.Rename(tmpPath, filepath.Join(dir, FileName))
}

// Load reads the index in dir. It returns (nil, nil) when dir has no index file.
func Load(ctx context.Context, dir string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	defer db.Close()

	s := New(0)
	err = db.View(func(tx *bbolt.Tx) error {
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if v := meta.Get(keyDimension); v != nil {
				d, err := strconv.Atoi(string(v))
				if err != nil {
					return fmt.Errorf("bad dimension %q: %w", v, err)
				}
				s.dimension = d
			}
		}
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var e storedEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			return s.add([]models.EmbeddedChunk{{
				Chunk:  models.Chunk{Text: e.Text, Metadata: e.Metadata},
				Vector: e.Vector,
			}})
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// entryKey keeps bbolt's byte order equal to insertion order.
func entryKey(i int) []byte {
	return []byte(fmt.Sprintf("%010d", i))
}

// Result is one search hit.
type Result struct {
	Chunk models.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Search returns the k entries most similar to query by cosine similarity.
func (s *Store) Search(query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	results := make([]Result, len(s.entries))
	for i, e := range s.entries {
		results[i] = Result{Chunk: e.Chunk, Score: cosineSimilarity(query, e.Vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results[:min(k, len(results))], nil
}

// Stats returns the number of entries per document id.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]int{}
	for _, e := range s.entries {
		out[e.Chunk.Metadata.DocumentID]++
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
