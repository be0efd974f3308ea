package entity

import (
	"github.com/google/uuid"
)

// Status tracks a document through the pipeline. A document only reaches
// FAILED when it cannot be opened or decoded at all; every later-stage
// problem degrades the resulting record instead.
type Status string

const (
	StatusIngested   Status = "INGESTED"
	StatusRendered   Status = "RENDERED"
	StatusAcquired   Status = "ACQUIRED"
	StatusExtracted  Status = "EXTRACTED"
	StatusNormalized Status = "NORMALIZED"
	StatusAggregated Status = "AGGREGATED"
	StatusFailed     Status = "FAILED"
)

// Document is one ingested input. Immutable once built.
type Document struct {
	ID     uuid.UUID
	Name   string
	Path   string
	Family string
	Pages  int
}

// TextSource says where a page's text came from.
type TextSource string

const (
	SourceTextLayer TextSource = "text-layer"
	SourceOCR       TextSource = "OCR"
)

// Confidence derived from the acquisition source: embedded text is trusted
// more than recognized text.
func (s TextSource) Confidence() float32 {
	if s == SourceTextLayer {
		return 0.9
	}
	return 0.6
}

// PageText is the acquired text of a single page.
type PageText struct {
	Page   int
	Text   string
	Source TextSource
	// Failed marks an acquisition failure (OCR unavailable, timed out, or
	// errored). Text is empty in that case; downstream fields for this page
	// simply come up missing.
	Failed bool
}
