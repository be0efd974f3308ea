package textacq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/ocr"
	"github.com/haycash/docextract/internal/render"
)

func TestAcquire_TextLayerPassesThrough(t *testing.T) {
	rec := ocr.RecognizerFunc(func(ctx context.Context, imagePath, language string) (string, error) {
		t.Fatal("recognizer must not be called for text-layer pages")
		return "", nil
	})
	a := NewAcquirer(rec, Config{}, nil)

	pages := a.Acquire(context.Background(), []render.PageArtifact{
		{Page: 1, Text: "RFC: ABC010101AAA"},
	})

	require.Len(t, pages, 1)
	assert.Equal(t, entity.SourceTextLayer, pages[0].Source)
	assert.Equal(t, "RFC: ABC010101AAA", pages[0].Text)
	assert.False(t, pages[0].Failed)
}

func TestAcquire_OCRPageIsRecognizedAndNormalized(t *testing.T) {
	rec := ocr.RecognizerFunc(func(ctx context.Context, imagePath, language string) (string, error) {
		assert.Equal(t, "/tmp/page-2.png", imagePath)
		assert.Equal(t, "spa", language)
		return "Total:   $1,234.56\r\n\r\n\r\n", nil
	})
	a := NewAcquirer(rec, Config{Language: "spa"}, nil)

	pages := a.Acquire(context.Background(), []render.PageArtifact{
		{Page: 2, ImagePath: "/tmp/page-2.png"},
	})

	require.Len(t, pages, 1)
	assert.Equal(t, entity.SourceOCR, pages[0].Source)
	assert.Equal(t, "Total: $1,234.56", pages[0].Text)
}

func TestAcquire_OCRFailureMarksPageFailed(t *testing.T) {
	rec := ocr.RecognizerFunc(func(ctx context.Context, imagePath, language string) (string, error) {
		return "", errors.New("tesseract: exit status 1")
	})
	a := NewAcquirer(rec, Config{}, nil)

	pages := a.Acquire(context.Background(), []render.PageArtifact{
		{Page: 1, ImagePath: "/tmp/bad.png"},
		{Page: 2, Text: "página legible con capa de texto"},
	})

	require.Len(t, pages, 2)
	assert.True(t, pages[0].Failed)
	assert.Empty(t, pages[0].Text)
	assert.False(t, pages[1].Failed)
}

func TestAcquire_RenderErrorPageCarriedForward(t *testing.T) {
	a := NewAcquirer(nil, Config{}, nil)

	pages := a.Acquire(context.Background(), []render.PageArtifact{
		{Page: 1, RenderErr: true},
	})

	require.Len(t, pages, 1)
	assert.True(t, pages[0].Failed)
	assert.Equal(t, entity.SourceOCR, pages[0].Source)
}

func TestAcquire_PreservesPageOrderUnderConcurrency(t *testing.T) {
	rec := ocr.RecognizerFunc(func(ctx context.Context, imagePath, language string) (string, error) {
		if imagePath == "/tmp/page-1.png" {
			time.Sleep(20 * time.Millisecond)
			return "primera", nil
		}
		return "segunda", nil
	})
	a := NewAcquirer(rec, Config{Concurrency: 4}, nil)

	pages := a.Acquire(context.Background(), []render.PageArtifact{
		{Page: 1, ImagePath: "/tmp/page-1.png"},
		{Page: 2, ImagePath: "/tmp/page-2.png"},
	})

	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Page)
	assert.Equal(t, "primera", pages[0].Text)
	assert.Equal(t, 2, pages[1].Page)
	assert.Equal(t, "segunda", pages[1].Text)
}
