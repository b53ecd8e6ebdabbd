package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/models"
)

// wordCounter counts whitespace-separated words.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

type failingSplitter struct{}

func (failingSplitter) SplitText(string) ([]string, error) {
	return nil, errors.New("splitter exploded")
}

type fakePage struct {
	text    string
	textErr error
	renders int
}

func (p *fakePage) Text() (string, error) { return p.text, p.textErr }

func (p *fakePage) Render(scale float64) ([]byte, error) {
	p.renders++
	return []byte(fmt.Sprintf("png@%.1f", scale)), nil
}

type fakeDocument struct {
	pages  []*fakePage
	closed bool
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) Page(n int) (core.PageHandle, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return d.pages[n-1], nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakeDocument
	err error
}

func (o *fakeOpener) Open([]byte, string) (core.PageDocument, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// countingOCR returns text for every image and remembers what it saw.
type countingOCR struct {
	mu        sync.Mutex
	text      string
	err       error
	calls     int
	images    [][]byte
	languages []string
}

func (o *countingOCR) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.images = append(o.images, image)
	o.languages = languages
	if o.err != nil {
		return "", o.err
	}
	return o.text, nil
}

// recordingProvider embeds every text as a vector of dim copies of its length.
type recordingProvider struct {
	mu    sync.Mutex
	dim   int
	err   error
	calls int
	texts []string
}

func (p *recordingProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.texts = append(p.texts, texts...)
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, p.dim)
		for j := range v {
			v[j] = float32(len(t))
		}
		out[i] = v
	}
	return out, nil
}

// countingFactory is an in-memory VectorStoreFactory that counts index
// builds, merges and saves.
type countingFactory struct {
	mu       sync.Mutex
	builds   int
	merges   int
	saves    []string
	saved    map[string][]models.EmbeddedChunk
	nilStore bool
	buildErr error
	saveErr  error

	// saveFailures makes that many Save calls fail before any succeeds.
	saveFailures int
	saveAttempts int
}

func newCountingFactory() *countingFactory {
	return &countingFactory{saved: map[string][]models.EmbeddedChunk{}}
}

func (f *countingFactory) FromEntries(_ context.Context, entries []models.EmbeddedChunk) (core.VectorStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	if f.nilStore {
		return nil, nil
	}
	return &fakeStore{f: f, entries: append([]models.EmbeddedChunk(nil), entries...)}, nil
}

func (f *countingFactory) Load(_ context.Context, dir string) (core.VectorStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, ok := f.saved[dir]
	if !ok {
		return nil, nil
	}
	return &fakeStore{f: f, entries: append([]models.EmbeddedChunk(nil), entries...)}, nil
}

func (f *countingFactory) savedDirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saves...)
}

type fakeStore struct {
	f       *countingFactory
	entries []models.EmbeddedChunk
}

func (s *fakeStore) MergeFrom(_ context.Context, other core.VectorStore) error {
	s.f.mu.Lock()
	s.f.merges++
	s.f.mu.Unlock()
	s.entries = append(s.entries, other.(*fakeStore).entries...)
	return nil
}

func (s *fakeStore) RemoveDocument(documentID string) int {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Chunk.Metadata.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed
}

func (s *fakeStore) Save(_ context.Context, dir string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.saveAttempts++
	if s.f.saveErr != nil {
		return s.f.saveErr
	}
	if s.f.saveFailures > 0 {
		s.f.saveFailures--
		return errors.New("transient write error")
	}
	s.f.saves = append(s.f.saves, dir)
	s.f.saved[dir] = append([]models.EmbeddedChunk(nil), s.entries...)
	return nil
}

func (s *fakeStore) Len() int { return len(s.entries) }

type fakeObjectClient struct {
	data map[string][]byte
}

func (c *fakeObjectClient) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	c.data[bucket+"/"+key] = data
	return "https://" + bucket + ".s3.test.amazonaws.com/" + key, nil
}

func (c *fakeObjectClient) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	b, ok := c.data[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such key %s/%s", bucket, key)
	}
	return b, nil
}
