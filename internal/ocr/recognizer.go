package ocr

import (
	"context"
	"fmt"
	"log/slog"
)

// Recognizer is the external OCR capability: image in, text out. The pipeline
// only ever talks to this interface so tests can run against a stub and the
// backend can be swapped without touching extraction or normalization.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, language string) (string, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, imagePath, language string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, imagePath, language string) (string, error) {
	return f(ctx, imagePath, language)
}

// Config names the tesseract binary and its language-model location. Both are
// explicit configuration threaded in at construction, never read from ambient
// process state.
type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string // --tessdata-dir; empty leaves tesseract's default
	PSM         int    // page segmentation mode; 6 suits uniform text blocks
}

// Tesseract invokes the locally installed tesseract binary through a Runner.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg Config, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

// Recognize runs tesseract over one page image.
// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir DIR]
func (t *Tesseract) Recognize(ctx context.Context, imagePath, language string) (string, error) {
	args := []string{imagePath, "stdout"}
	if language != "" {
		args = append(args, "-l", language)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		t.logger.Warn("ocr.tesseract.failed", "image", imagePath, "stderr", truncate(string(errb), 512), "error", err)
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}
