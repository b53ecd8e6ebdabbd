package core

import "context"

// PageHandle gives access to one page of an opened document.
type PageHandle interface {
	// Text returns the raw native text layer of the page.
	Text() (string, error)
	// Render rasterizes the page at scale (1.0 = 72 dpi) and returns PNG bytes.
	Render(scale float64) ([]byte, error)
}

// PageDocument is an opened, page-addressable document.
type PageDocument interface {
	NumPages() int
	// Page returns the handle for the 1-based page number.
	Page(pageNumber int) (PageHandle, error)
	Close() error
}

// DocumentOpener opens raw document bytes. The contentType hint selects the
// parsing strategy.
type DocumentOpener interface {
	Open(data []byte, contentType string) (PageDocument, error)
}

// OCREngine recognizes text in a raster image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}
