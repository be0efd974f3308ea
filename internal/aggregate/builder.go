package aggregate

import (
	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/extract"
	"github.com/haycash/docextract/internal/normalize"
	"github.com/haycash/docextract/internal/patterns"
)

// BuildRecord turns one extraction result into a Record, normalizing every
// matched field and materializing placeholders for the misses. Records with
// missing required fields come back flagged Incomplete, never dropped.
func BuildRecord(doc *entity.Document, fam patterns.Family, index int, res extract.Result, n *normalize.Normalizer) entity.Record {
	rec := entity.Record{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Index:        index,
		Fields:       make(map[string]entity.NormalizedField, len(fam.Patterns)),
		FieldOrder:   res.Order,
	}

	// A field name may be declared more than once (fallback patterns); the
	// first declaration carries the kind and scheme for normalization, and
	// the field is required when any declaration says so.
	required := make(map[string]bool)
	var names []string
	for _, fp := range fam.Patterns {
		if fp.Required {
			required[fp.Name] = true
		}
		if _, done := rec.Fields[fp.Name]; done {
			continue
		}
		names = append(names, fp.Name)
		if m, ok := res.Matches[fp.Name]; ok {
			rec.Fields[fp.Name] = n.Field(fp, m)
		} else {
			rec.Fields[fp.Name] = n.Missing(fp)
		}
	}

	// A required field counts as missing both when it never matched and when
	// its match failed to parse.
	for _, name := range names {
		if required[name] && rec.Fields[name].Missing {
			rec.MissingRequired = append(rec.MissingRequired, name)
		}
	}
	rec.Incomplete = len(rec.MissingRequired) > 0
	return rec
}
