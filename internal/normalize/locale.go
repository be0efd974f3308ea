package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/haycash/docextract/internal/common"
)

// Locale carries the numeric separators, date layouts, and month names used
// to interpret raw matches. Layouts are tried in order; the first parse wins,
// so day-first locales list day-first layouts first.
type Locale struct {
	Tag language.Tag

	decimalSep   byte
	thousandsSep byte
	layouts      []string
	months       map[string]time.Month
}

var spanishMonths = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

var englishMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// NewLocale resolves a BCP 47 code ("es-MX", "en-US") into a Locale. Only the
// base language matters: Spanish is day-first with Spanish month names,
// everything else falls back to month-first English conventions.
func NewLocale(code string) (*Locale, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("%w: locale %q: %v", common.ErrInvalidInput, code, err)
	}

	l := &Locale{Tag: tag, decimalSep: '.', thousandsSep: ','}
	base, _ := tag.Base()
	if base.String() == "es" {
		l.months = spanishMonths
		l.layouts = []string{
			"02/01/2006", "02-01-2006", "2/1/2006", "2-1-2006",
			"02/01/06", "2006-01-02",
		}
	} else {
		l.months = englishMonths
		l.layouts = []string{
			"01/02/2006", "01-02-2006", "1/2/2006", "1-2-2006",
			"01/02/06", "2006-01-02",
		}
	}
	return l, nil
}

// reAmountNoise strips currency markers: symbols, currency codes, interior
// whitespace (OCR loves to split thousands groups with spaces).
var reAmountNoise = regexp.MustCompile(`(?i)[$\s]|mxn|usd|m\.?n\.?|pesos`)

// ParseAmount turns a raw currency match into a float64. Negative amounts may
// arrive as "-$5.00" or accounting style "($5.00)".
func (l *Locale) ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", common.ErrParseFailure)
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = reAmountNoise.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	s = strings.ReplaceAll(s, string(l.thousandsSep), "")
	if l.decimalSep != '.' {
		s = strings.ReplaceAll(s, string(l.decimalSep), ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", common.ErrParseFailure, raw, err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ParsePercent parses "16%", "16.0 %", or a bare "16" into the numeric
// percentage (16.0, not 0.16).
func (l *Locale) ParsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if s == "" {
		return 0, fmt.Errorf("%w: empty percent", common.ErrParseFailure)
	}
	if l.decimalSep != '.' {
		s = strings.ReplaceAll(s, string(l.decimalSep), ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: percent %q: %v", common.ErrParseFailure, raw, err)
	}
	return v, nil
}

var reLongDate = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+([a-záéíóúü]+)\s+de\s+(\d{4})`)

// ParseDate tries the locale's numeric layouts in order, then the written-out
// form ("12 DE ENERO DE 2024"). Dates are calendar dates; time of day and
// timezone are deliberately zero.
func (l *Locale) ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", common.ErrParseFailure)
	}

	for _, layout := range l.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if m := reLongDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if month, ok := l.months[strings.ToLower(m[2])]; ok && day >= 1 && day <= 31 {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", common.ErrParseFailure, raw)
}

// FormatAmount renders an amount back into the locale's thousands-separated
// two-decimal form ("1,234.56"); the inverse of ParseAmount up to formatting.
func (l *Locale) FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(l.thousandsSep)
		}
		b.WriteByte(intPart[i])
	}
	b.WriteByte(l.decimalSep)
	b.WriteString(frac)

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
