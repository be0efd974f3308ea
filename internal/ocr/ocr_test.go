package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRunner struct {
	name string
	args []string
	out  string
	err  error
}

func (c *captureRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	c.name = name
	c.args = args
	return []byte(c.out), nil, c.err
}

func TestTesseract_BuildsArgs(t *testing.T) {
	r := &captureRunner{out: "texto reconocido"}
	tess := NewTesseract(Config{TessdataDir: "/usr/share/tessdata", PSM: 6}, r, nil)

	got, err := tess.Recognize(context.Background(), "/tmp/page-1.png", "spa")
	require.NoError(t, err)

	assert.Equal(t, "texto reconocido", got)
	assert.Equal(t, "tesseract", r.name)
	assert.Equal(t, []string{
		"/tmp/page-1.png", "stdout", "-l", "spa", "--psm", "6",
		"--tessdata-dir", "/usr/share/tessdata",
	}, r.args)
}

func TestTesseract_OmitsOptionalArgs(t *testing.T) {
	r := &captureRunner{}
	tess := NewTesseract(Config{}, r, nil)

	_, err := tess.Recognize(context.Background(), "p.png", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p.png", "stdout"}, r.args)
}

func TestNormalize_CollapsesOCRNoise(t *testing.T) {
	in := "Total:\t\t$1,234.56\r\n\r\n\r\n\r\n____________\r\nRFC:   ABC010101AAA   \r\n"
	got := Normalize(in)
	assert.Equal(t, "Total: $1,234.56\n\nRFC: ABC010101AAA", got)
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
}
