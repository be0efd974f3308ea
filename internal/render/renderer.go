package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/ocr"
)

// Config controls rasterization and the text-layer sufficiency check.
type Config struct {
	Pdftoppm     string // binary name or absolute path; if empty -> "pdftoppm"
	DPI          int    // rasterization DPI for scanned pages, default 300
	MinTextChars int    // below this, a text layer is not usable; default 80
	MaxPages     int    // 0 = no limit
}

// PageArtifact is what the renderer hands to text acquisition for one page:
// either a usable text layer or a rendered image path (possibly neither, when
// the page is corrupt — it is still carried forward).
type PageArtifact struct {
	Page      int
	Text      string // embedded text layer, empty when not usable
	ImagePath string // rendered raster, empty when the text layer sufficed
	RenderErr bool
}

// Renderer turns each page of a document into a text layer or a raster image.
type Renderer struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger
}

func NewRenderer(cfg Config, runner ocr.Runner, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 80
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	return &Renderer{cfg: cfg, runner: runner, logger: logger}
}

// Render opens the document, extracts per-page text layers, and rasterizes
// the pages whose text layer is absent or unusable. The returned cleanup
// releases the rendered images; it is always safe to call.
//
// The only fatal outcome is a document that cannot be opened or decoded at
// all; a single corrupt page yields an empty artifact and processing of the
// remaining pages continues.
func (r *Renderer) Render(ctx context.Context, path, family string) (*entity.Document, []PageArtifact, func(), error) {
	noop := func() {}

	if err := api.ValidateFile(path, nil); err != nil {
		return nil, nil, noop, fmt.Errorf("%w: %s: %v", common.ErrDocumentOpen, path, err)
	}

	doc := &entity.Document{
		ID:     uuid.New(),
		Name:   filepath.Base(path),
		Path:   path,
		Family: family,
	}

	texts, pageCount, err := r.textLayers(path)
	if err != nil {
		// No readable text structure; fall back to page count only and
		// rasterize everything.
		r.logger.Warn("render.textlayer.unavailable", "doc", doc.Name, "error", err)
		pageCount, err = api.PageCountFile(path)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("%w: %s: %v", common.ErrDocumentOpen, path, err)
		}
		texts = make([]string, pageCount)
	}
	if r.cfg.MaxPages > 0 && pageCount > r.cfg.MaxPages {
		pageCount = r.cfg.MaxPages
		texts = texts[:pageCount]
	}
	doc.Pages = pageCount

	artifacts := make([]PageArtifact, pageCount)
	needRaster := false
	for i := 0; i < pageCount; i++ {
		artifacts[i] = PageArtifact{Page: i + 1}
		if r.usableText(texts[i]) {
			artifacts[i].Text = texts[i]
		} else {
			needRaster = true
		}
	}
	if !needRaster {
		return doc, artifacts, noop, nil
	}

	images, cleanup, rerr := r.rasterize(ctx, path)
	if rerr != nil {
		// Rasterization failing wholesale degrades the affected pages, it
		// does not abort the document.
		r.logger.Warn("render.raster.failed", "doc", doc.Name, "error", rerr)
		for i := range artifacts {
			if artifacts[i].Text == "" {
				artifacts[i].RenderErr = true
			}
		}
		return doc, artifacts, noop, nil
	}
	for i := range artifacts {
		if artifacts[i].Text != "" {
			continue
		}
		if img, ok := images[artifacts[i].Page]; ok {
			artifacts[i].ImagePath = img
		} else {
			artifacts[i].RenderErr = true
		}
	}
	return doc, artifacts, cleanup, nil
}

// textLayers pulls the embedded text of every page. Per-page extraction
// errors produce an empty string for that page, nothing more.
func (r *Renderer) textLayers(path string) ([]string, int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	n := reader.NumPage()
	if n < 1 {
		return nil, 0, fmt.Errorf("document has no pages")
	}
	texts := make([]string, n)
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			r.logger.Debug("render.page.text_failed", "page", i, "error", err)
			continue
		}
		texts[i-1] = txt
	}
	return texts, n, nil
}

// usableText applies the minimum-length threshold and a quality score so a
// garbage text layer (a few stray glyphs over a scan) does not suppress OCR.
func (r *Renderer) usableText(s string) bool {
	if len(strings.TrimSpace(s)) < r.cfg.MinTextChars {
		return false
	}
	return textQuality(s) >= minQualityScore
}

const minQualityScore = 5.0

var (
	reLetters   = regexp.MustCompile(`[A-Za-zÁÉÍÓÚÜÑáéíóúüñ]`)
	reNonLetter = regexp.MustCompile(`[^A-Za-zÁÉÍÓÚÜÑáéíóúüñ ]`)
)

// textQuality scores extracted text by letter density, penalizing streams of
// short junk tokens. Higher is better; digital text layers land well above
// minQualityScore.
func textQuality(s string) float64 {
	if strings.TrimSpace(s) == "" {
		return -1e9
	}
	letters := len(reLetters.FindAllString(s, -1))
	tokens := strings.Fields(reNonLetter.ReplaceAllString(s, " "))
	short := 0
	for _, t := range tokens {
		if len(t) <= 2 {
			short++
		}
	}
	score := float64(letters)/float64(len(s))*100.0 - float64(short)/float64(max(1, len(tokens)))*30.0
	if len(s) > 500 {
		score += 10.0
	}
	return score
}

// rasterize renders every page to PNG via pdftoppm and returns page number ->
// image path. The caller owns the images until cleanup is called.
func (r *Renderer) rasterize(ctx context.Context, path string) (map[int]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "docextract-pp-*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("render.cleanup.failed", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", strconv.Itoa(r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("%w: pdftoppm: %v: %s", common.ErrRenderFailure, err, truncateStr(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		cleanup()
		return nil, func() {}, fmt.Errorf("%w: pdftoppm produced no images", common.ErrRenderFailure)
	}

	// pdftoppm numbers output as page-1.png or zero-padded page-01.png;
	// parse the trailing number rather than trusting lexical order.
	images := make(map[int]string, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".png")
		idx := strings.LastIndex(base, "-")
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(base[idx+1:])
		if err != nil {
			continue
		}
		images[n] = m
	}
	return images, cleanup, nil
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
