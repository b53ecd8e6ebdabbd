// Package pdfdoc opens uploaded documents as page-addressable documents.
// PDFs keep their pages; other formats become a single page of text.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gen2brain/go-fitz"

	"github.com/markdave123-py/docvault/internal/core"
)

// baseDPI is the resolution of a page rendered at scale 1.0.
const baseDPI = 72.0

var errNoRaster = errors.New("document has no raster representation")

// Opener picks a parser by content type.
//
// UseReadability: let docconv strip boilerplate from HTML documents.
type Opener struct {
	UseReadability bool
}

var _ core.DocumentOpener = Opener{}

// Open parses data. PDFs are recognized by content type or by their magic bytes.
func (o Opener) Open(data []byte, contentType string) (core.PageDocument, error) {
	mt := mediaType(contentType)
	if mt == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-")) {
		return openPDF(data)
	}
	if mt == "text/plain" || mt == "" {
		return &textDocument{text: string(data)}, nil
	}

	res, err := docconv.Convert(bytes.NewReader(data), mt, o.UseReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", mt, err)
	}
	return &textDocument{text: res.Body}, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// pdfDocument wraps a MuPDF document. go-fitz serializes access internally.
type pdfDocument struct {
	doc *fitz.Document
}

func openPDF(data []byte) (*pdfDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfDocument{doc: doc}, nil
}

func (d *pdfDocument) NumPages() int { return d.doc.NumPage() }

func (d *pdfDocument) Page(pageNumber int) (core.PageHandle, error) {
	if pageNumber < 1 || pageNumber > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1..%d", pageNumber, d.doc.NumPage())
	}
	return &pdfPage{doc: d.doc, index: pageNumber - 1}, nil
}

func (d *pdfDocument) Close() error { return d.doc.Close() }

type pdfPage struct {
	doc   *fitz.Document
	index int
}

func (p *pdfPage) Text() (string, error) { return p.doc.Text(p.index) }

func (p *pdfPage) Render(scale float64) ([]byte, error) {
	return p.doc.ImagePNG(p.index, baseDPI*scale)
}

// textDocument is a single page of already extracted text.
type textDocument struct {
	text string
}

func (d *textDocument) NumPages() int { return 1 }

func (d *textDocument) Page(pageNumber int) (core.PageHandle, error) {
	if pageNumber != 1 {
		return nil, fmt.Errorf("page %d out of range 1..1", pageNumber)
	}
	return textPage(d.text), nil
}

func (d *textDocument) Close() error { return nil }

type textPage string

func (p textPage) Text() (string, error) { return string(p), nil }

func (p textPage) Render(float64) ([]byte, error) { return nil, errNoRaster }
