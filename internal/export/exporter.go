package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
)

const (
	headerRow    = 3
	subHeaderRow = 4
	firstDataRow = 5

	// Excel's hard limit on sheet names.
	maxSheetName = 31
)

// Exporter renders record groups into an xlsx workbook, one sheet per group.
// Each field occupies a column pair: the typed value and the verbatim raw
// match beside it.
type Exporter struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger, now: time.Now}
}

// Write builds the workbook and saves it to path.
func (e *Exporter) Write(groups []entity.RecordGroup, path string) error {
	f, err := e.Workbook(groups)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := f.SaveAs(path); err != nil {
		return common.WrapError(err, "save workbook")
	}
	e.logger.Info("export.workbook.saved", "path", path, "sheets", len(groups))
	return nil
}

// Workbook builds the in-memory workbook. Sheets appear in group order;
// groups with zero records still get a sheet so their absence is visible.
func (e *Exporter) Workbook(groups []entity.RecordGroup) (*excelize.File, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", common.ErrInvalidInput)
	}

	f := excelize.NewFile()
	styles, err := newStyleSet(f)
	if err != nil {
		return nil, common.WrapError(err, "workbook styles")
	}

	used := make(map[string]int)
	for _, grp := range groups {
		name := sheetName(grp.Key.Label(), used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, common.WrapError(err, "new sheet")
		}
		if err := e.writeSheet(f, name, grp, styles); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, common.WrapError(err, "delete default sheet")
	}
	f.SetActiveSheet(0)
	return f, nil
}

func (e *Exporter) writeSheet(f *excelize.File, sheet string, grp entity.RecordGroup, styles styleSet) error {
	fields := fieldOrder(grp.Records)

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	// Info rows.
	if err := set(1, 1, grp.Key.Label()); err != nil {
		return err
	}
	if err := set(1, 2, fmt.Sprintf("%d registros — generado %s",
		len(grp.Records), e.now().Format("2006-01-02 15:04"))); err != nil {
		return err
	}

	// Grouped header: fixed columns, then a merged pair per field.
	if err := set(1, headerRow, "documento"); err != nil {
		return err
	}
	if err := set(2, headerRow, "bloque"); err != nil {
		return err
	}
	if err := set(3, headerRow, "faltantes"); err != nil {
		return err
	}
	for i, name := range fields {
		col := 4 + i*2
		if err := set(col, headerRow, name); err != nil {
			return err
		}
		from, _ := excelize.CoordinatesToCellName(col, headerRow)
		to, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		if err := f.MergeCell(sheet, from, to); err != nil {
			return err
		}
		if err := set(col, subHeaderRow, "valor"); err != nil {
			return err
		}
		if err := set(col+1, subHeaderRow, "crudo"); err != nil {
			return err
		}
	}

	// Data rows.
	for r, rec := range grp.Records {
		row := firstDataRow + r
		if err := set(1, row, rec.DocumentName); err != nil {
			return err
		}
		if err := set(2, row, rec.Index+1); err != nil {
			return err
		}
		if len(rec.MissingRequired) > 0 {
			if err := set(3, row, strings.Join(rec.MissingRequired, ", ")); err != nil {
				return err
			}
		}
		for i, name := range fields {
			col := 4 + i*2
			fld, ok := rec.Fields[name]
			if !ok {
				continue
			}
			if err := writeFieldCell(f, sheet, col, row, fld, styles, set); err != nil {
				return err
			}
			if fld.Raw != "" {
				if err := set(col+1, row, fld.Raw); err != nil {
					return err
				}
			}
		}
	}

	return e.decorateSheet(f, sheet, fields, styles)
}

// writeFieldCell writes the typed value with its kind's number format.
// Missing fields leave the value cell empty; the raw cell still shows what
// was seen.
func writeFieldCell(f *excelize.File, sheet string, col, row int, fld entity.NormalizedField, styles styleSet, set func(int, int, any) error) error {
	if fld.Missing {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	switch fld.Kind {
	case entity.KindCurrency:
		if err := set(col, row, fld.Amount); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, styles.currency)
	case entity.KindPercent:
		// Excel's percent format multiplies by 100 on display.
		if err := set(col, row, fld.Amount/100); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, styles.percent)
	case entity.KindDate:
		return set(col, row, fld.Date.Format("2006-01-02"))
	default:
		return set(col, row, fld.Text)
	}
}

func (e *Exporter) decorateSheet(f *excelize.File, sheet string, fields []string, styles styleSet) error {
	lastCol := 3 + len(fields)*2
	from, _ := excelize.CoordinatesToCellName(1, headerRow)
	to, _ := excelize.CoordinatesToCellName(lastCol, subHeaderRow)
	if err := f.SetCellStyle(sheet, from, to, styles.header); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "A", "A", 34); err != nil {
		return err
	}
	lastName, _ := excelize.ColumnNumberToName(lastCol)
	if err := f.SetColWidth(sheet, "B", lastName, 16); err != nil {
		return err
	}

	topLeft, _ := excelize.CoordinatesToCellName(1, firstDataRow)
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      firstDataRow - 1,
		TopLeftCell: topLeft,
		ActivePane:  "bottomLeft",
	})
}

type styleSet struct {
	header   int
	currency int
	percent  int
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return s, err
	}

	currencyFmt := "$#,##0.00"
	s.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return s, err
	}

	percentFmt := "0.00%"
	s.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &percentFmt})
	return s, err
}

// fieldOrder unions the records' field orders, first occurrence wins. Groups
// normally hold one family so this is just that family's declaration order.
func fieldOrder(records []entity.Record) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, name := range rec.FieldOrder {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

var sheetNameStrip = strings.NewReplacer(
	"\\", "", "/", "", "?", "", "*", "", "[", "", "]", "", ":", "",
)

// sheetName sanitizes a group label into a unique, valid sheet name.
// Truncation counts runes, not bytes, so a label with an Ñ never gets cut
// mid-character.
func sheetName(label string, used map[string]int) string {
	name := strings.TrimSpace(sheetNameStrip.Replace(label))
	if name == "" {
		name = "grupo"
	}
	name = truncateRunes(name, maxSheetName)
	used[name]++
	if n := used[name]; n > 1 {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
