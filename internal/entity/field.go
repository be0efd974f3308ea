package entity

import (
	"regexp"
	"time"
)

// ValueKind is the declared type a raw match normalizes into.
type ValueKind string

const (
	KindCurrency   ValueKind = "currency"
	KindPercent    ValueKind = "percent"
	KindDate       ValueKind = "date"
	KindIdentifier ValueKind = "identifier"
	KindFreeText   ValueKind = "free-text"
)

// AnchorPreference selects among multiple value hits inside an anchor window.
type AnchorPreference string

const (
	PreferNearest AnchorPreference = "nearest"
	PreferFirst   AnchorPreference = "first"
	PreferLast    AnchorPreference = "last"
	// PreferBefore picks the last hit strictly before the anchor, e.g. the
	// amount a contract states just ahead of naming it ("Monto Mínimo Mensual").
	PreferBefore AnchorPreference = "before"
)

// Anchor is an optional positional constraint on a pattern: the value regex
// only counts inside a window around (or before) the anchor match.
type Anchor struct {
	Pattern *regexp.Regexp
	Window  int
	Prefer  AnchorPreference
}

// FieldPattern maps a field name to its matching rule within one document
// family. Patterns are evaluated in the order the family declares them;
// the first successful match for a field name wins.
type FieldPattern struct {
	Name    string
	Family  string
	Pattern *regexp.Regexp
	// Group is the capture group holding the value; 0 means the whole match.
	Group    int
	Anchor   *Anchor
	Kind     ValueKind
	Scheme   string // identifier scheme, e.g. "rfc" or "curp"
	Required bool
}

// FieldMatch is a raw matched substring before normalization.
type FieldMatch struct {
	Name       string
	Raw        string
	Page       int
	Source     TextSource
	Confidence float32
}

// NormalizedField carries the typed value and always retains the raw form.
// Missing is set when the field had no match or the raw text failed to parse;
// Raw stays verbatim either way so nothing is lost for audit.
type NormalizedField struct {
	Name    string
	Kind    ValueKind
	Raw     string
	Missing bool

	Amount float64   // currency, percent
	Date   time.Time // date
	Text   string    // identifier, free-text
}

// Value returns the typed value for export, or nil when missing.
func (f NormalizedField) Value() any {
	if f.Missing {
		return nil
	}
	switch f.Kind {
	case KindCurrency, KindPercent:
		return f.Amount
	case KindDate:
		return f.Date.Format("2006-01-02")
	default:
		return f.Text
	}
}
