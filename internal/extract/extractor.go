package extract

import (
	"log/slog"
	"strings"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/patterns"
)

// Result is the raw extraction outcome for one unit of text (a whole document
// or a single page, depending on the family's split mode).
type Result struct {
	// Matches maps field name to its winning raw match.
	Matches map[string]entity.FieldMatch
	// Order lists field names in pattern declaration order, matched or not.
	Order []string
	// MissingRequired names the required fields that matched nowhere.
	MissingRequired []string
}

// Extractor runs a family's patterns over acquired page text. Patterns apply
// in declaration order and pages in page order; the first match for a field
// wins and later pages cannot displace it.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract matches every pattern of the family against the pages. A family may
// declare several patterns for the same field name (primary plus fallbacks);
// the first pattern to succeed settles the field and later ones are skipped.
func (e *Extractor) Extract(fam patterns.Family, pages []entity.PageText) Result {
	res := Result{Matches: make(map[string]entity.FieldMatch, len(fam.Patterns))}

	listed := make(map[string]struct{}, len(fam.Patterns))
	required := make(map[string]bool)

	for _, fp := range fam.Patterns {
		if _, ok := listed[fp.Name]; !ok {
			listed[fp.Name] = struct{}{}
			res.Order = append(res.Order, fp.Name)
		}
		if fp.Required {
			required[fp.Name] = true
		}

		// An earlier pattern already settled this field.
		if _, ok := res.Matches[fp.Name]; ok {
			continue
		}

		for _, page := range pages {
			if page.Failed || page.Text == "" {
				continue
			}
			raw, ok := matchField(fp, page.Text)
			if !ok {
				continue
			}
			res.Matches[fp.Name] = entity.FieldMatch{
				Name:       fp.Name,
				Raw:        raw,
				Page:       page.Page,
				Source:     page.Source,
				Confidence: page.Source.Confidence(),
			}
			e.logger.Debug("extract.field.ok",
				"family", fam.Name, "field", fp.Name, "page", page.Page, "source", string(page.Source))
			break
		}
	}

	for _, name := range res.Order {
		if _, ok := res.Matches[name]; ok {
			continue
		}
		if required[name] {
			res.MissingRequired = append(res.MissingRequired, name)
			e.logger.Warn("extract.field.miss",
				"family", fam.Name, "field", name, "error", common.ErrPatternMiss)
		} else {
			e.logger.Debug("extract.field.miss", "family", fam.Name, "field", name)
		}
	}
	return res
}

// matchField applies one pattern to one page's text, honoring the optional
// anchor window.
func matchField(fp entity.FieldPattern, text string) (string, bool) {
	if fp.Anchor == nil {
		m := fp.Pattern.FindStringSubmatchIndex(text)
		return groupText(text, m, fp.Group)
	}
	return matchAnchored(fp, text)
}

// matchAnchored restricts value matches to a window around an anchor hit. The
// first anchor occurrence that yields a candidate decides the field.
func matchAnchored(fp entity.FieldPattern, text string) (string, bool) {
	anchors := fp.Anchor.Pattern.FindAllStringIndex(text, -1)
	if len(anchors) == 0 {
		return "", false
	}
	values := fp.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(values) == 0 {
		return "", false
	}

	w := fp.Anchor.Window
	for _, a := range anchors {
		if m := pickInWindow(values, a[0], a[1], w, fp.Anchor.Prefer); m != nil {
			return groupText(text, m, fp.Group)
		}
	}
	return "", false
}

// pickInWindow selects one value match relative to an anchor span, or nil.
func pickInWindow(values [][]int, aStart, aEnd, window int, prefer entity.AnchorPreference) []int {
	lo, hi := aStart-window, aEnd+window
	if prefer == entity.PreferBefore {
		hi = aStart
	}

	var inWindow [][]int
	for _, v := range values {
		if v[1] <= lo || v[0] >= hi {
			continue
		}
		if prefer == entity.PreferBefore && v[1] > aStart {
			continue
		}
		inWindow = append(inWindow, v)
	}
	if len(inWindow) == 0 {
		return nil
	}

	switch prefer {
	case entity.PreferFirst:
		return inWindow[0]
	case entity.PreferLast, entity.PreferBefore:
		return inWindow[len(inWindow)-1]
	default: // nearest
		best := inWindow[0]
		bestDist := spanDistance(best, aStart, aEnd)
		for _, v := range inWindow[1:] {
			if d := spanDistance(v, aStart, aEnd); d < bestDist {
				best, bestDist = v, d
			}
		}
		return best
	}
}

// spanDistance is the gap between a value span and the anchor span; zero when
// they touch or overlap.
func spanDistance(v []int, aStart, aEnd int) int {
	switch {
	case v[1] <= aStart:
		return aStart - v[1]
	case v[0] >= aEnd:
		return v[0] - aEnd
	default:
		return 0
	}
}

// groupText slices the requested capture group out of a submatch index set.
func groupText(text string, m []int, group int) (string, bool) {
	if m == nil {
		return "", false
	}
	g := group * 2
	if g+1 >= len(m) || m[g] < 0 {
		return "", false
	}
	raw := strings.TrimSpace(text[m[g]:m[g+1]])
	return raw, raw != ""
}
