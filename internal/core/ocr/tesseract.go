// Package ocr recognizes text in page images with Tesseract.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/markdave123-py/docvault/internal/core"
)

// TesseractEngine runs one Tesseract client per call, so calls may run concurrently.
type TesseractEngine struct{}

var _ core.OCREngine = TesseractEngine{}

type result struct {
	text string
	err  error
}

// Recognize returns the text in image. When ctx ends first the call returns
// ctx's error; the running recognition finishes in the background.
func (TesseractEngine) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	done := make(chan result, 1)
	go func() {
		text, err := recognize(image, languages)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func recognize(image []byte, languages []string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set languages %v: %w", languages, err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
