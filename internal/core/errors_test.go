package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_TagsKind(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrProvider, "embed", base)

	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "embed: boom", err.Error())
}

func TestWrap_DeadlineIsTimeout(t *testing.T) {
	err := Wrap(ErrProvider, "embed", fmt.Errorf("call: %w", context.DeadlineExceeded))

	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(ErrPersistence, "save", nil))
}

func TestWrap_AlreadyTagged(t *testing.T) {
	err := Wrap(ErrValidation, "persist", Validationf("lengths differ: %d != %d", 1, 0))

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "persist: validation failed: lengths differ: 1 != 0", err.Error())
}

func TestExtractionError(t *testing.T) {
	var err error = &ExtractionError{Page: 3, Err: errors.New("render failed")}

	assert.ErrorIs(t, err, ErrExtraction)
	var ee *ExtractionError
	assert.True(t, errors.As(fmt.Errorf("ingest: %w", err), &ee))
	assert.Equal(t, 3, ee.Page)
	assert.Equal(t, "page 3: render failed", err.Error())
}

func TestSentinelHierarchy(t *testing.T) {
	assert.ErrorIs(t, ErrIndexNotCreated, ErrPersistence)
	assert.ErrorIs(t, ErrDocumentIDMissing, ErrValidation)
}
