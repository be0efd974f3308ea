package export

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/haycash/docextract/internal/entity"
)

func invoiceRecord(docName string, total float64, rawTotal, rfc string) entity.Record {
	return entity.Record{
		DocumentID:   uuid.New(),
		DocumentName: docName,
		FieldOrder:   []string{"total", "rfc"},
		Fields: map[string]entity.NormalizedField{
			"total": {Name: "total", Kind: entity.KindCurrency, Raw: rawTotal, Amount: total},
			"rfc":   {Name: "rfc", Kind: entity.KindIdentifier, Raw: rfc, Text: rfc},
		},
	}
}

func TestWorkbook_SheetPerGroup(t *testing.T) {
	e := NewExporter(nil)
	groups := []entity.RecordGroup{
		{
			Key:     entity.GroupKey{Entity: "AAA010101AA1", Interval: "2024-01"},
			Records: []entity.Record{invoiceRecord("a.pdf", 1234.56, "$1,234.56", "AAA010101AA1")},
		},
		{
			Key:     entity.GroupKey{},
			Records: []entity.Record{invoiceRecord("raro.pdf", 10, "$10", "BBB020202BB2")},
		},
	}

	f, err := e.Workbook(groups)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Equal(t, []string{"AAA010101AA1 2024-01", "ungrouped"}, sheets)

	label, err := f.GetCellValue(sheets[0], "A1")
	require.NoError(t, err)
	assert.Equal(t, "AAA010101AA1 2024-01", label)
}

func TestWorkbook_HeaderAndDataLayout(t *testing.T) {
	e := NewExporter(nil)
	rec := invoiceRecord("a.pdf", 1234.56, "$1,234.56", "AAA010101AA1")
	f, err := e.Workbook([]entity.RecordGroup{{
		Key: entity.GroupKey{Entity: "AAA010101AA1"}, Records: []entity.Record{rec},
	}})
	require.NoError(t, err)
	defer f.Close()
	sheet := "AAA010101AA1"

	get := func(cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "documento", get("A3"))
	assert.Equal(t, "bloque", get("B3"))
	assert.Equal(t, "faltantes", get("C3"))
	assert.Equal(t, "total", get("D3"))
	assert.Equal(t, "valor", get("D4"))
	assert.Equal(t, "crudo", get("E4"))
	assert.Equal(t, "rfc", get("F3"))

	assert.Equal(t, "a.pdf", get("A5"))
	assert.Equal(t, "$1,234.56", get("E5"))
	assert.Equal(t, "AAA010101AA1", get("F5"))

	raw, err := f.GetCellValue(sheet, "D5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1234.56", raw)
}

func TestWorkbook_MissingFieldLeavesValueEmptyKeepsRaw(t *testing.T) {
	e := NewExporter(nil)
	rec := entity.Record{
		DocumentName:    "b.pdf",
		FieldOrder:      []string{"fecha"},
		Incomplete:      true,
		MissingRequired: []string{"fecha"},
		Fields: map[string]entity.NormalizedField{
			"fecha": {Name: "fecha", Kind: entity.KindDate, Raw: "fecha ilegible", Missing: true},
		},
	}
	f, err := e.Workbook([]entity.RecordGroup{{Key: entity.GroupKey{Entity: "X"}, Records: []entity.Record{rec}}})
	require.NoError(t, err)
	defer f.Close()

	v, _ := f.GetCellValue("X", "D5")
	assert.Empty(t, v)
	raw, _ := f.GetCellValue("X", "E5")
	assert.Equal(t, "fecha ilegible", raw)
	missing, _ := f.GetCellValue("X", "C5")
	assert.Equal(t, "fecha", missing)
}

func TestWrite_SavesFile(t *testing.T) {
	e := NewExporter(nil)
	path := filepath.Join(t.TempDir(), "salida.xlsx")
	rec := invoiceRecord("a.pdf", 10, "$10", "AAA010101AA1")

	err := e.Write([]entity.RecordGroup{{Key: entity.GroupKey{Entity: "AAA010101AA1"}, Records: []entity.Record{rec}}}, path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWorkbook_EmptyGroupsRejected(t *testing.T) {
	e := NewExporter(nil)
	_, err := e.Workbook(nil)
	assert.Error(t, err)
}

func TestSheetName_SanitizationAndUniqueness(t *testing.T) {
	used := map[string]int{}
	assert.Equal(t, "AAA 2024-01", sheetName("AAA 2024-01", used))
	assert.Equal(t, "AAA 2024-01 (2)", sheetName("AAA 2024-01", used))
	assert.Equal(t, "conbarras", sheetName("con/barras*?", used))

	long := "AAA010101AA1 2024-01 con un nombre larguísimo"
	got := sheetName(long, used)
	assert.LessOrEqual(t, len([]rune(got)), 31)
}

func TestSheetName_TruncatesOnRuneBoundary(t *testing.T) {
	used := map[string]int{}
	// The 31st rune is multi-byte; byte slicing would split it.
	label := strings.Repeat("Ñ", 40)
	got := sheetName(label, used)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("Ñ", 31), got)

	again := sheetName(label, used)
	assert.True(t, utf8.ValidString(again))
	assert.Equal(t, strings.Repeat("Ñ", 27)+" (2)", again)
}

func TestWorkbook_DateCellIsISO(t *testing.T) {
	e := NewExporter(nil)
	rec := entity.Record{
		DocumentName: "c.pdf",
		FieldOrder:   []string{"fecha"},
		Fields: map[string]entity.NormalizedField{
			"fecha": {Name: "fecha", Kind: entity.KindDate, Raw: "15/01/2024",
				Date: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)},
		},
	}
	f, err := e.Workbook([]entity.RecordGroup{{Key: entity.GroupKey{Entity: "X"}, Records: []entity.Record{rec}}})
	require.NoError(t, err)
	defer f.Close()

	v, _ := f.GetCellValue("X", "D5")
	assert.Equal(t, "2024-01-15", v)
}
