package patterns

import (
	"fmt"
	"regexp"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
)

// Family bundles the ordered field patterns for one document family together
// with the knobs the later stages need: which fields drive grouping, whether
// each page is its own record, and which field deduplicates records.
type Family struct {
	Name     string
	Patterns []entity.FieldPattern

	// EntityField and DateField name the extracted fields that feed the
	// grouping key. Either may be empty; records then land ungrouped.
	EntityField string
	DateField   string

	// SplitPerPage makes every page its own record instead of one record
	// per document.
	SplitPerPage bool

	// DedupeField, when set, drops records whose value for this field was
	// already seen in the batch.
	DedupeField string

	// Sniff is an optional fingerprint used for family auto-detection.
	Sniff *regexp.Regexp
}

// Library holds families in registration order. Order is part of the
// contract: auto-detection probes families in the order they were added, and
// within a family patterns match in declaration order, so the same input
// always resolves the same way.
type Library struct {
	order    []string
	families map[string]Family
}

// NewLibrary returns a library preloaded with the built-in families.
func NewLibrary() *Library {
	l := &Library{families: make(map[string]Family)}
	for _, f := range builtinFamilies() {
		// Built-ins are constructed in-process and always valid.
		if err := l.Register(f); err != nil {
			panic(fmt.Sprintf("builtin family %q: %v", f.Name, err))
		}
	}
	return l
}

// Register adds a family or replaces an existing one of the same name.
// Replacement keeps the original position in detection order. A field name
// may appear more than once: later patterns are fallbacks tried only when
// the earlier ones fail to match.
func (l *Library) Register(f Family) error {
	if f.Name == "" {
		return fmt.Errorf("%w: family name is empty", common.ErrInvalidInput)
	}
	if len(f.Patterns) == 0 {
		return fmt.Errorf("%w: family %q has no patterns", common.ErrInvalidInput, f.Name)
	}
	for _, p := range f.Patterns {
		if p.Name == "" {
			return fmt.Errorf("%w: family %q has an unnamed pattern", common.ErrInvalidInput, f.Name)
		}
		if p.Pattern == nil {
			return fmt.Errorf("%w: field %q in family %q has no pattern", common.ErrInvalidInput, p.Name, f.Name)
		}
	}
	if _, exists := l.families[f.Name]; !exists {
		l.order = append(l.order, f.Name)
	}
	l.families[f.Name] = f
	return nil
}

// Family looks up a family by name.
func (l *Library) Family(name string) (Family, bool) {
	f, ok := l.families[name]
	return f, ok
}

// Names returns the family names in registration order.
func (l *Library) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Detect probes the sniff patterns against the document text, in registration
// order, and returns the first family that matches. Empty string means no
// family claimed the document.
func (l *Library) Detect(text string) string {
	for _, name := range l.order {
		f := l.families[name]
		if f.Sniff != nil && f.Sniff.MatchString(text) {
			return name
		}
	}
	return ""
}
