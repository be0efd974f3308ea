package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haycash/docextract/internal/aggregate"
	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/extract"
	"github.com/haycash/docextract/internal/normalize"
	"github.com/haycash/docextract/internal/patterns"
	"github.com/haycash/docextract/internal/render"
	"github.com/haycash/docextract/internal/textacq"
)

// Input is one document queued for processing. Family may be empty, in which
// case the library's sniff patterns decide.
type Input struct {
	Path   string
	Family string
}

// Result is the per-document outcome. Exactly one Result exists per Input,
// failures included, so batch accounting always balances.
type Result struct {
	Input    Input
	Document *entity.Document
	Status   entity.Status
	Records  []entity.Record
	Err      error
}

// Renderer is the page-render stage seam; *render.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, path, family string) (*entity.Document, []render.PageArtifact, func(), error)
}

// Acquirer is the text-acquisition stage seam; *textacq.Acquirer implements it.
type Acquirer interface {
	Acquire(ctx context.Context, artifacts []render.PageArtifact) []entity.PageText
}

var _ Renderer = (*render.Renderer)(nil)
var _ Acquirer = (*textacq.Acquirer)(nil)

// Processor drives one document through render, acquisition, extraction, and
// normalization. Grouping happens at batch level.
type Processor struct {
	renderer   Renderer
	acquirer   Acquirer
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	lib        *patterns.Library
	logger     *slog.Logger
}

func NewProcessor(
	renderer Renderer,
	acquirer Acquirer,
	extractor *extract.Extractor,
	normalizer *normalize.Normalizer,
	lib *patterns.Library,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		renderer:   renderer,
		acquirer:   acquirer,
		extractor:  extractor,
		normalizer: normalizer,
		lib:        lib,
		logger:     logger,
	}
}

// Process runs one document end to end. The only failure that produces a
// FAILED result is a document that cannot be opened or assigned a family;
// page-level trouble degrades the records instead.
func (p *Processor) Process(ctx context.Context, in Input) Result {
	start := time.Now()
	res := Result{Input: in, Status: entity.StatusIngested}

	doc, artifacts, cleanup, err := p.renderer.Render(ctx, in.Path, in.Family)
	if err != nil {
		res.Status = entity.StatusFailed
		res.Err = err
		p.logger.Error("pipeline.render.failed", "path", in.Path, "error", err)
		return res
	}
	defer cleanup()
	res.Document = doc
	res.Status = entity.StatusRendered
	p.logger.Debug("pipeline.render.ok", "doc", doc.Name, "pages", doc.Pages)

	pages := p.acquirer.Acquire(ctx, artifacts)
	res.Status = entity.StatusAcquired

	fam, err := p.resolveFamily(in.Family, pages)
	if err != nil {
		res.Status = entity.StatusFailed
		res.Err = err
		p.logger.Error("pipeline.family.unresolved", "doc", doc.Name, "error", err)
		return res
	}
	doc.Family = fam.Name

	extracted := p.extractUnits(fam, pages)
	res.Status = entity.StatusExtracted

	res.Records = make([]entity.Record, len(extracted))
	for i, er := range extracted {
		res.Records[i] = aggregate.BuildRecord(doc, fam, i, er, p.normalizer)
	}
	res.Status = entity.StatusNormalized

	p.logger.Info("pipeline.document.ok",
		"doc", doc.Name,
		"family", fam.Name,
		"pages", doc.Pages,
		"records", len(res.Records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// resolveFamily honors an explicit family and otherwise sniffs the acquired
// text.
func (p *Processor) resolveFamily(name string, pages []entity.PageText) (patterns.Family, error) {
	if name != "" {
		fam, ok := p.lib.Family(name)
		if !ok {
			return patterns.Family{}, fmt.Errorf("%w: unknown document family %q", common.ErrInvalidInput, name)
		}
		return fam, nil
	}

	var b strings.Builder
	for _, pg := range pages {
		b.WriteString(pg.Text)
		b.WriteByte('\n')
	}
	detected := p.lib.Detect(b.String())
	if detected == "" {
		return patterns.Family{}, fmt.Errorf("%w: no family matched the document", common.ErrInvalidInput)
	}
	fam, _ := p.lib.Family(detected)
	return fam, nil
}

// extractUnits applies the family's split mode: one extraction over the whole
// document, or one per page.
func (p *Processor) extractUnits(fam patterns.Family, pages []entity.PageText) []extract.Result {
	if !fam.SplitPerPage {
		return []extract.Result{p.extractor.Extract(fam, pages)}
	}
	out := make([]extract.Result, len(pages))
	for i, pg := range pages {
		out[i] = p.extractor.Extract(fam, []entity.PageText{pg})
	}
	return out
}

// BatchOutcome is what a whole run produces: one result per input plus the
// final groups ready for export.
type BatchOutcome struct {
	Results []Result
	Groups  []entity.RecordGroup
	Failed  int
}

// ProcessBatch processes documents concurrently with at most workers in
// flight, then merges records into groups single-threaded in submission
// order. len(Results) always equals len(inputs).
func (p *Processor) ProcessBatch(ctx context.Context, inputs []Input, pred aggregate.Predicate, workers int) BatchOutcome {
	if workers <= 0 {
		workers = 4
	}
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i] = p.Process(gctx, in)
			return nil
		})
	}
	_ = g.Wait()

	grouper := aggregate.NewGrouper(pred, p.logger)
	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
			continue
		}
		fam, ok := p.lib.Family(results[i].Document.Family)
		if !ok {
			continue
		}
		grouper.Add(fam, results[i].Records...)
		results[i].Status = entity.StatusAggregated
	}

	groups := grouper.Groups()
	p.logger.Info("pipeline.batch.done",
		"documents", len(inputs),
		"failed", failed,
		"groups", len(groups),
		"filtered", grouper.Filtered(),
		"deduped", grouper.Deduped(),
	)
	return BatchOutcome{Results: results, Groups: groups, Failed: failed}
}
