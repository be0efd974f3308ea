package patterns

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haycash/docextract/internal/entity"
)

func TestNewLibrary_BuiltinsPresent(t *testing.T) {
	l := NewLibrary()
	for _, name := range []string{"cfdi", "csf", "statement", "contract", "invoice"} {
		_, ok := l.Family(name)
		assert.True(t, ok, "missing builtin family %s", name)
	}
}

func TestDetect_SniffsInRegistrationOrder(t *testing.T) {
	l := NewLibrary()

	assert.Equal(t, "csf", l.Detect("CONSTANCIA DE SITUACIÓN FISCAL"))
	assert.Equal(t, "statement", l.Detect("BANCO X\nESTADO DE CUENTA\nCLABE 002010077777777771"))
	assert.Equal(t, "invoice", l.Detect("FACTURA 0001\nTotal: $1,234.56"))
	assert.Equal(t, "", l.Detect("texto sin fingerprint conocido"))
}

func TestDetect_FirstRegisteredWinsOnOverlap(t *testing.T) {
	l := NewLibrary()
	// "Folio Fiscal" places the text in cfdi territory even though it also
	// says FACTURA; cfdi registered first.
	got := l.Detect("FACTURA\nFolio Fiscal: 11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "cfdi", got)
}

func TestRegister_RejectsInvalidFamilies(t *testing.T) {
	l := NewLibrary()

	err := l.Register(Family{Name: "", Patterns: []entity.FieldPattern{{Name: "x", Pattern: regexp.MustCompile(`x`)}}})
	assert.Error(t, err)

	err = l.Register(Family{Name: "empty"})
	assert.Error(t, err)

	err = l.Register(Family{Name: "nopat", Patterns: []entity.FieldPattern{{Name: "x"}}})
	assert.Error(t, err)
}

func TestRegister_AcceptsFallbackPatternsForOneField(t *testing.T) {
	l := NewLibrary()

	err := l.Register(Family{Name: "anticipos", Patterns: []entity.FieldPattern{
		{Name: "total", Kind: entity.KindCurrency, Pattern: regexp.MustCompile(`(?i)total:?\s*(\$[\d,\.]+)`), Group: 1},
		{Name: "total", Kind: entity.KindCurrency, Pattern: regexp.MustCompile(`\$[\d,\.]+`)},
	}})
	require.NoError(t, err)

	f, ok := l.Family("anticipos")
	require.True(t, ok)
	assert.Len(t, f.Patterns, 2)
}

func TestRegister_ReplaceKeepsDetectionOrder(t *testing.T) {
	l := NewLibrary()
	orig := l.Names()

	custom := Family{
		Name:  "csf",
		Sniff: regexp.MustCompile(`(?i)situaci[óo]n fiscal`),
		Patterns: []entity.FieldPattern{
			{Name: "rfc", Pattern: regexp.MustCompile(exprRFC), Kind: entity.KindIdentifier, Scheme: "rfc"},
		},
	}
	require.NoError(t, l.Register(custom))

	assert.Equal(t, orig, l.Names())
	f, ok := l.Family("csf")
	require.True(t, ok)
	assert.Len(t, f.Patterns, 1)
}

func TestBuiltinRegexes(t *testing.T) {
	rfc := regexp.MustCompile(exprRFC)
	assert.True(t, rfc.MatchString("ABC010101AAA"))
	assert.True(t, rfc.MatchString("XAXX010101000"))
	assert.False(t, rfc.MatchString("AB0101AAA"))

	curp := regexp.MustCompile(exprCURP)
	assert.True(t, curp.MatchString("GOMC800101HDFRRL09"))
	assert.False(t, curp.MatchString("GOMC800101XDFRRL09"))

	money := regexp.MustCompile(exprMoney)
	assert.True(t, money.MatchString("$1,234.56"))
	assert.True(t, money.MatchString("$ 1 234.56"), "OCR space as thousands separator")
	assert.True(t, money.MatchString("$12"))
}
