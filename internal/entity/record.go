package entity

import "github.com/google/uuid"

// Record is one logical unit of extracted data: a contract, an invoice block,
// a statement summary. Fields map field name -> normalized value (raw kept
// alongside, see NormalizedField).
type Record struct {
	DocumentID   uuid.UUID
	DocumentName string
	// Index distinguishes sub-records when a family splits one document into
	// several logical blocks (e.g. one invoice per page).
	Index  int
	Fields map[string]NormalizedField
	// FieldOrder preserves the family's declaration order for export.
	FieldOrder []string
	// Incomplete is set when required fields were missing after extraction.
	// Such records are flagged, never dropped.
	Incomplete      bool
	MissingRequired []string
}

// Field returns the named field and whether it is present and parsed.
func (r Record) Field(name string) (NormalizedField, bool) {
	f, ok := r.Fields[name]
	if !ok || f.Missing {
		return f, false
	}
	return f, true
}

// GroupKey buckets records for export: entity identifier (e.g. a tax ID)
// plus a time interval such as "2024-01". The zero key is the distinguished
// ungrouped bucket for records lacking a usable key.
type GroupKey struct {
	Entity   string
	Interval string
}

func (k GroupKey) IsZero() bool { return k.Entity == "" && k.Interval == "" }

// Label is the human-readable name the export layer uses for a sheet.
func (k GroupKey) Label() string {
	if k.IsZero() {
		return "ungrouped"
	}
	if k.Interval == "" {
		return k.Entity
	}
	return k.Entity + " " + k.Interval
}

// RecordGroup is the unit the export adapter consumes: all records sharing a
// grouping key, in insertion order.
type RecordGroup struct {
	Key     GroupKey
	Records []Record
}
