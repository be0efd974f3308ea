package aggregate

import (
	"log/slog"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
	"github.com/haycash/docextract/internal/patterns"
)

// Grouper buckets records by entity + interval. Not safe for concurrent use:
// the pipeline merges results single-threaded in submission order, which is
// what keeps group order deterministic.
type Grouper struct {
	pred   Predicate
	order  []entity.GroupKey
	groups map[entity.GroupKey]*entity.RecordGroup
	// seen holds family+"\x00"+value for dedupe fields already observed.
	seen   map[string]struct{}
	logger *slog.Logger

	filtered int
	deduped  int
}

func NewGrouper(pred Predicate, logger *slog.Logger) *Grouper {
	if pred == nil {
		pred = All
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{
		pred:   pred,
		groups: make(map[entity.GroupKey]*entity.RecordGroup),
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// Add routes records through the filter predicate and the family's dedupe
// field, then into their group. Records lacking a usable key land in the
// ungrouped bucket.
func (g *Grouper) Add(fam patterns.Family, recs ...entity.Record) {
	for _, rec := range recs {
		if !g.pred(rec) {
			g.filtered++
			g.logger.Debug("aggregate.filtered", "doc", rec.DocumentName, "index", rec.Index)
			continue
		}
		if g.isDuplicate(fam, rec) {
			g.deduped++
			g.logger.Info("aggregate.deduped", "doc", rec.DocumentName, "field", fam.DedupeField)
			continue
		}

		key := groupKey(fam, rec)
		if key.IsZero() {
			g.logger.Warn("aggregate.ungrouped",
				"doc", rec.DocumentName, "index", rec.Index, "error", common.ErrGroupingFailure)
		}
		grp, ok := g.groups[key]
		if !ok {
			grp = &entity.RecordGroup{Key: key}
			g.groups[key] = grp
			g.order = append(g.order, key)
		}
		grp.Records = append(grp.Records, rec)
	}
}

func (g *Grouper) isDuplicate(fam patterns.Family, rec entity.Record) bool {
	if fam.DedupeField == "" {
		return false
	}
	f, ok := rec.Field(fam.DedupeField)
	if !ok || f.Text == "" {
		return false
	}
	key := fam.Name + "\x00" + f.Text
	if _, dup := g.seen[key]; dup {
		return true
	}
	g.seen[key] = struct{}{}
	return false
}

// Groups returns all groups in first-insertion order, with the ungrouped
// bucket always last.
func (g *Grouper) Groups() []entity.RecordGroup {
	out := make([]entity.RecordGroup, 0, len(g.order))
	var ungrouped *entity.RecordGroup
	for _, key := range g.order {
		grp := g.groups[key]
		if key.IsZero() {
			ungrouped = grp
			continue
		}
		out = append(out, *grp)
	}
	if ungrouped != nil {
		out = append(out, *ungrouped)
	}
	return out
}

// Filtered and Deduped report how many records the predicate and the dedupe
// pass removed, for end-of-batch logging.
func (g *Grouper) Filtered() int { return g.filtered }
func (g *Grouper) Deduped() int  { return g.deduped }

// groupKey derives the entity+interval key from the family's designated
// fields. Intervals are calendar months.
func groupKey(fam patterns.Family, rec entity.Record) entity.GroupKey {
	var key entity.GroupKey
	if fam.EntityField != "" {
		if f, ok := rec.Field(fam.EntityField); ok {
			key.Entity = f.Text
		}
	}
	if key.Entity == "" {
		return entity.GroupKey{}
	}
	if fam.DateField != "" {
		if f, ok := rec.Field(fam.DateField); ok {
			key.Interval = f.Date.Format("2006-01")
		}
	}
	return key
}
