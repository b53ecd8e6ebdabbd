package ingestion_engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/metrics"
	"github.com/markdave123-py/docvault/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultRenderScale is the upscale factor applied before OCR.
const DefaultRenderScale = 2.0

// PageExtractor reads the text of one page, falling back to OCR when the page
// has no text layer.
//
// ocr:        recognizer used for image-only pages.
// languages:  OCR languages, e.g. deu+eng.
// scale:      raster upscale factor for OCR.
// ocrTimeout: deadline for one OCR pass (0 = none).
type PageExtractor struct {
	ocr        core.OCREngine
	languages  []string
	scale      float64
	ocrTimeout time.Duration
}

// NewPageExtractor builds a page extractor.
func NewPageExtractor(ocr core.OCREngine, languages []string, scale float64, ocrTimeout time.Duration) *PageExtractor {
	if len(languages) == 0 {
		languages = []string{"deu", "eng"}
	}
	if scale <= 0 {
		scale = DefaultRenderScale
	}
	return &PageExtractor{ocr: ocr, languages: languages, scale: scale, ocrTimeout: ocrTimeout}
}

// ExtractPage returns the trimmed text of the page. Native text always wins;
// OCR runs only when the text layer holds nothing but whitespace.
func (e *PageExtractor) ExtractPage(ctx context.Context, page core.PageHandle, pageNumber int) (string, error) {
	p, err := e.extract(ctx, page, pageNumber)
	return p.Text, err
}

func (e *PageExtractor) extract(ctx context.Context, page core.PageHandle, pageNumber int) (models.Page, error) {
	out := models.Page{PageNumber: pageNumber, Source: models.SourceTextLayer}

	raw, err := page.Text()
	if err != nil {
		return out, &core.ExtractionError{Page: pageNumber, Err: fmt.Errorf("text layer: %w", err)}
	}
	if tokens := strings.Fields(raw); len(tokens) > 0 {
		out.Text = strings.Join(tokens, " ")
		metrics.PagesExtracted.WithLabelValues(string(models.SourceTextLayer)).Inc()
		return out, nil
	}

	log.Printf("WARN: PageExtractor: page %d has no text, using OCR fallback", pageNumber)
	if e.ocr == nil {
		return out, &core.ExtractionError{Page: pageNumber, Err: fmt.Errorf("no OCR engine configured")}
	}

	img, err := page.Render(e.scale)
	if err != nil {
		return out, &core.ExtractionError{Page: pageNumber, Err: fmt.Errorf("render at %.1fx: %w", e.scale, err)}
	}

	octx := ctx
	if e.ocrTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, e.ocrTimeout)
		defer cancel()
	}
	text, err := e.ocr.Recognize(octx, img, e.languages)
	if err != nil {
		return out, &core.ExtractionError{Page: pageNumber, Err: core.Wrap(core.ErrExtraction, "ocr", err)}
	}

	out.Text = strings.TrimSpace(text)
	out.Source = models.SourceOCR
	metrics.PagesExtracted.WithLabelValues(string(models.SourceOCR)).Inc()
	return out, nil
}

// ExtractDocument extracts every page of doc with at most workers pages in
// flight. Pages come back in document order; the first failure cancels the rest.
func (e *PageExtractor) ExtractDocument(ctx context.Context, doc core.PageDocument, workers int) ([]models.Page, error) {
	total := doc.NumPages()
	if total <= 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 1
	}

	pages := make([]models.Page, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < total; i++ {
		pageNumber := i + 1
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			handle, err := doc.Page(pageNumber)
			if err != nil {
				return &core.ExtractionError{Page: pageNumber, Err: err}
			}
			p, err := e.extract(gctx, handle, pageNumber)
			if err != nil {
				return err
			}
			p.TotalPages = total
			pages[pageNumber-1] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, core.Wrap(core.ErrExtraction, "extract pages", err)
	}
	return pages, nil
}
