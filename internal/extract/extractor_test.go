package extract

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/patterns"
)

func invoiceTestFamily() patterns.Family {
	return patterns.Family{
		Name: "invoice",
		Patterns: []entity.FieldPattern{
			{
				Name: "total", Kind: entity.KindCurrency, Required: true,
				Pattern: regexp.MustCompile(`(?i)total:?\s*(\$\s*\d{1,3}(?:[ ,]\d{3})*(?:\.\d{2})?)`), Group: 1,
			},
			{
				Name: "rfc", Kind: entity.KindIdentifier, Scheme: "rfc", Required: true,
				Pattern: regexp.MustCompile(`RFC:?\s*([A-ZÑ&]{3,4}\d{6}[A-Z0-9]{2,3})`), Group: 1,
			},
		},
	}
}

func TestExtract_LabeledFields(t *testing.T) {
	e := NewExtractor(nil)
	pages := []entity.PageText{
		{Page: 1, Text: "FACTURA A-12\nRFC: ABC010101AAA\nTotal: $1,234.56", Source: entity.SourceTextLayer},
	}

	res := e.Extract(invoiceTestFamily(), pages)

	require.Empty(t, res.MissingRequired)
	assert.Equal(t, "$1,234.56", res.Matches["total"].Raw)
	assert.Equal(t, "ABC010101AAA", res.Matches["rfc"].Raw)
	assert.Equal(t, []string{"total", "rfc"}, res.Order)
	assert.Equal(t, float32(0.9), res.Matches["total"].Confidence)
}

func TestExtract_FirstPageWins(t *testing.T) {
	e := NewExtractor(nil)
	pages := []entity.PageText{
		{Page: 1, Text: "Total: $100.00", Source: entity.SourceTextLayer},
		{Page: 2, Text: "Total: $999.99\nRFC: ABC010101AAA", Source: entity.SourceOCR},
	}

	res := e.Extract(invoiceTestFamily(), pages)

	assert.Equal(t, "$100.00", res.Matches["total"].Raw)
	assert.Equal(t, 1, res.Matches["total"].Page)
	// rfc only exists on page 2 and carries OCR confidence.
	assert.Equal(t, 2, res.Matches["rfc"].Page)
	assert.Equal(t, float32(0.6), res.Matches["rfc"].Confidence)
}

func TestExtract_FailedPagesAreSkipped(t *testing.T) {
	e := NewExtractor(nil)
	pages := []entity.PageText{
		{Page: 1, Failed: true, Source: entity.SourceOCR},
		{Page: 2, Text: "Total: $50.00\nRFC: ABC010101AAA", Source: entity.SourceTextLayer},
	}

	res := e.Extract(invoiceTestFamily(), pages)
	assert.Equal(t, 2, res.Matches["total"].Page)
}

func TestExtract_RequiredMissIsReported(t *testing.T) {
	e := NewExtractor(nil)
	pages := []entity.PageText{{Page: 1, Text: "sin montos aquí", Source: entity.SourceTextLayer}}

	res := e.Extract(invoiceTestFamily(), pages)

	assert.Equal(t, []string{"total", "rfc"}, res.MissingRequired)
	assert.Empty(t, res.Matches)
}

func anchoredMoney(prefer entity.AnchorPreference, window int, anchor string) entity.FieldPattern {
	return entity.FieldPattern{
		Name: "monto", Kind: entity.KindCurrency,
		Pattern: regexp.MustCompile(`\$\s*\d{1,3}(?:[ ,]\d{3})*(?:\.\d{2})?`),
		Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(anchor), Window: window, Prefer: prefer},
	}
}

func TestExtract_AnchorNearestPicksClosestHit(t *testing.T) {
	e := NewExtractor(nil)
	fam := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		anchoredMoney(entity.PreferNearest, 60, `(?i)\btotal\b`),
	}}
	text := "Subtotal $900.00 ........ Total $1,044.00 ........ Pagado $0.00"
	res := e.Extract(fam, []entity.PageText{{Page: 1, Text: text, Source: entity.SourceTextLayer}})

	assert.Equal(t, "$1,044.00", res.Matches["monto"].Raw)
}

func TestExtract_AnchorBeforePicksAmountAheadOfLabel(t *testing.T) {
	e := NewExtractor(nil)
	fam := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		anchoredMoney(entity.PreferBefore, 80, `(?i)mensual`),
	}}
	text := "la cantidad de $15,000.00 pesos mensuales, con depósito de $30,000.00"
	res := e.Extract(fam, []entity.PageText{{Page: 1, Text: text, Source: entity.SourceTextLayer}})

	assert.Equal(t, "$15,000.00", res.Matches["monto"].Raw)
}

func TestExtract_AnchorFirstAndLast(t *testing.T) {
	e := NewExtractor(nil)
	text := "IMPORTES $10.00 $20.00 $30.00"

	first := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		anchoredMoney(entity.PreferFirst, 200, `IMPORTES`),
	}}
	res := e.Extract(first, []entity.PageText{{Page: 1, Text: text, Source: entity.SourceTextLayer}})
	assert.Equal(t, "$10.00", res.Matches["monto"].Raw)

	last := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		anchoredMoney(entity.PreferLast, 200, `IMPORTES`),
	}}
	res = e.Extract(last, []entity.PageText{{Page: 1, Text: text, Source: entity.SourceTextLayer}})
	assert.Equal(t, "$30.00", res.Matches["monto"].Raw)
}

func TestExtract_AnchorOutsideWindowDoesNotMatch(t *testing.T) {
	e := NewExtractor(nil)
	fam := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		anchoredMoney(entity.PreferNearest, 10, `(?i)total`),
	}}
	text := "Total ................................................ $1,000.00"
	res := e.Extract(fam, []entity.PageText{{Page: 1, Text: text, Source: entity.SourceTextLayer}})

	_, ok := res.Matches["monto"]
	assert.False(t, ok)
}

func TestExtract_FallbackPatterns_FirstSuccessWins(t *testing.T) {
	e := NewExtractor(nil)
	fam := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		{
			Name: "total", Kind: entity.KindCurrency,
			Pattern: regexp.MustCompile(`(?i)total:?\s*(\$\d+(?:\.\d{2})?)`), Group: 1,
		},
		{
			Name: "total", Kind: entity.KindCurrency,
			Pattern: regexp.MustCompile(`\$\d+(?:\.\d{2})?`),
		},
	}}

	// Both patterns can match; the labeled one is declared first and wins,
	// even though the bare-money fallback would hit the earlier "$5.00".
	text := "Anticipo $5.00\nTotal: $9.99"
	res := e.Extract(fam, []entity.PageText{{Page: 1, Text: text, Source: entity.SourceTextLayer}})

	assert.Equal(t, "$9.99", res.Matches["total"].Raw)
	assert.Equal(t, []string{"total"}, res.Order)
}

func TestExtract_FallbackPatternUsedWhenPrimaryMisses(t *testing.T) {
	e := NewExtractor(nil)
	fam := patterns.Family{Name: "x", Patterns: []entity.FieldPattern{
		{
			Name: "total", Kind: entity.KindCurrency, Required: true,
			Pattern: regexp.MustCompile(`(?i)total:?\s*(\$\d+(?:\.\d{2})?)`), Group: 1,
		},
		{
			Name: "total", Kind: entity.KindCurrency, Required: true,
			Pattern: regexp.MustCompile(`(?i)importe:?\s*(\$\d+(?:\.\d{2})?)`), Group: 1,
		},
	}}

	res := e.Extract(fam, []entity.PageText{
		{Page: 1, Text: "Importe: $7.50", Source: entity.SourceTextLayer},
	})
	assert.Equal(t, "$7.50", res.Matches["total"].Raw)
	assert.Empty(t, res.MissingRequired)

	// Neither declaration matches: one miss reported, not one per pattern.
	res = e.Extract(fam, []entity.PageText{
		{Page: 1, Text: "sin montos", Source: entity.SourceTextLayer},
	})
	assert.Equal(t, []string{"total"}, res.MissingRequired)
	assert.Equal(t, []string{"total"}, res.Order)
}

func TestExtract_OCRSpacedMoneyStillMatches(t *testing.T) {
	e := NewExtractor(nil)
	res := e.Extract(invoiceTestFamily(), []entity.PageText{
		{Page: 1, Text: "Total: $ 1 234.56\nRFC: ABC010101AAA", Source: entity.SourceOCR},
	})
	assert.Equal(t, "$ 1 234.56", res.Matches["total"].Raw)
}
