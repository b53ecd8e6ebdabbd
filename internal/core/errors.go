package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrExtraction  = errors.New("extraction failed")
	ErrValidation  = errors.New("validation failed")
	ErrProvider    = errors.New("provider call failed")
	ErrPersistence = errors.New("persistence failed")
	ErrTimeout     = errors.New("operation timed out")

	ErrIndexNotCreated   = fmt.Errorf("%w: index not created", ErrPersistence)
	ErrDocumentIDMissing = fmt.Errorf("%w: document id not found", ErrValidation)
)

// ExtractionError reports a page that could not be read or recognized.
type ExtractionError struct {
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// ChunkValidationError describes a chunk whose token count is outside the
// embedding model's budget. The chunker drops such chunks.
type ChunkValidationError struct {
	Section string
	Tokens  int
	Limit   int
}

func (e *ChunkValidationError) Error() string {
	return fmt.Sprintf("chunk %s has %d tokens (limit %d)", e.Section, e.Tokens, e.Limit)
}

// SplitterFault wraps an internal failure of the recursive splitter.
type SplitterFault struct {
	Err error
}

func (e *SplitterFault) Error() string {
	return fmt.Sprintf("recursive splitter: %v", e.Err)
}

func (e *SplitterFault) Unwrap() error { return e.Err }

// Validationf builds an ErrValidation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// kindError tags an error with one or more taxonomy sentinels without
// changing its message.
type kindError struct {
	kinds []error
	err   error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() []error {
	return append(append([]error{}, e.kinds...), e.err)
}

// Wrap tags err with kind and prefixes it with op. A context deadline is
// additionally tagged ErrTimeout.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	kinds := []error{}
	if !errors.Is(err, kind) {
		kinds = append(kinds, kind)
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		kinds = append(kinds, ErrTimeout)
	}
	if len(kinds) == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, &kindError{kinds: kinds, err: err})
}
