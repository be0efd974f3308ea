package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
)

// Identifier scheme validators. Values are uppercased and stripped of spaces
// before validation, since OCR introduces both.
var schemeValidators = map[string]*regexp.Regexp{
	"rfc":   regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{2,3}$`),
	"curp":  regexp.MustCompile(`^[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]{2}$`),
	"clabe": regexp.MustCompile(`^\d{18}$`),
	"uuid":  regexp.MustCompile(`^[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}$`),
}

// Normalizer converts raw field matches into typed values under one locale.
type Normalizer struct {
	loc    *Locale
	logger *slog.Logger
}

func NewNormalizer(loc *Locale, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{loc: loc, logger: logger}
}

// Field normalizes one raw match according to its declared kind. A parse
// failure degrades the field to missing-with-raw rather than erroring: the
// verbatim text survives into the record for audit.
func (n *Normalizer) Field(fp entity.FieldPattern, m entity.FieldMatch) entity.NormalizedField {
	out := entity.NormalizedField{Name: fp.Name, Kind: fp.Kind, Raw: m.Raw}

	var err error
	switch fp.Kind {
	case entity.KindCurrency:
		out.Amount, err = n.loc.ParseAmount(m.Raw)
	case entity.KindPercent:
		out.Amount, err = n.loc.ParsePercent(m.Raw)
	case entity.KindDate:
		out.Date, err = n.loc.ParseDate(m.Raw)
	case entity.KindIdentifier:
		out.Text, err = normalizeIdentifier(m.Raw, fp.Scheme)
	default:
		out.Text = collapseSpaces(m.Raw)
	}

	if err != nil {
		n.logger.Warn("normalize.parse_failed",
			"field", fp.Name, "kind", string(fp.Kind), "raw", m.Raw, "error", err)
		out.Missing = true
	}
	return out
}

// Missing builds the placeholder for a field that never matched.
func (n *Normalizer) Missing(fp entity.FieldPattern) entity.NormalizedField {
	return entity.NormalizedField{Name: fp.Name, Kind: fp.Kind, Missing: true}
}

// normalizeIdentifier uppercases, strips whitespace, and validates against
// the named scheme. An unknown scheme only gets the cleanup.
func normalizeIdentifier(raw, scheme string) (string, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if scheme == "" {
		return s, nil
	}
	re, ok := schemeValidators[strings.ToLower(scheme)]
	if !ok {
		return s, nil
	}
	if !re.MatchString(s) {
		return "", fmt.Errorf("%w: %q is not a valid %s", common.ErrParseFailure, raw, scheme)
	}
	return s, nil
}

var reSpaces = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
