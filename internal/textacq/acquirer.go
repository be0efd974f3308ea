package textacq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/ocr"
	"github.com/haycash/docextract/internal/render"
)

// Config tunes OCR invocation for pages without a usable text layer.
type Config struct {
	Language    string        // tesseract language, e.g. "spa"
	Timeout     time.Duration // per-page OCR budget; 0 -> 120s
	Concurrency int           // parallel OCR calls per document; 0 -> 2
}

// Acquirer produces the text of every page: text-layer pages pass through
// untouched, rasterized pages go through the Recognizer. A page whose text
// cannot be acquired is marked failed and carried forward, never dropped.
type Acquirer struct {
	rec    ocr.Recognizer
	cfg    Config
	logger *slog.Logger
}

func NewAcquirer(rec ocr.Recognizer, cfg Config, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.Language == "" {
		cfg.Language = "spa"
	}
	return &Acquirer{rec: rec, cfg: cfg, logger: logger}
}

// Acquire returns one PageText per artifact, in page order. OCR pages run
// concurrently; the result slice is index-addressed so no ordering is lost.
func (a *Acquirer) Acquire(ctx context.Context, artifacts []render.PageArtifact) []entity.PageText {
	pages := make([]entity.PageText, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for i, art := range artifacts {
		pages[i] = entity.PageText{Page: art.Page}

		switch {
		case art.Text != "":
			pages[i].Text = art.Text
			pages[i].Source = entity.SourceTextLayer
		case art.ImagePath != "":
			i, art := i, art
			g.Go(func() error {
				pages[i] = a.recognizePage(gctx, art)
				return nil
			})
		default:
			// Render already failed for this page.
			pages[i].Source = entity.SourceOCR
			pages[i].Failed = true
		}
	}

	_ = g.Wait()
	return pages
}

func (a *Acquirer) recognizePage(ctx context.Context, art render.PageArtifact) entity.PageText {
	pt := entity.PageText{Page: art.Page, Source: entity.SourceOCR}

	octx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.rec.Recognize(octx, art.ImagePath, a.cfg.Language)
	if err != nil {
		a.logger.Warn("textacq.ocr.failed",
			"page", art.Page,
			"image", art.ImagePath,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", fmt.Errorf("%w: %v", common.ErrAcquisitionFailure, err),
		)
		pt.Failed = true
		return pt
	}

	pt.Text = ocr.Normalize(text)
	a.logger.Debug("textacq.ocr.ok",
		"page", art.Page,
		"chars", len(pt.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pt
}
