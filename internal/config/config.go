package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/haycash/docextract/internal/common"
)

// Config is the full runtime configuration. Every knob can come from a flag
// or from a DOCEXTRACT_* environment variable; flags win.
type Config struct {
	// Inputs.
	InputDir   string `mapstructure:"input"`
	FilePrefix string `mapstructure:"file-prefix"`
	Family     string `mapstructure:"family"`
	PatternSet string `mapstructure:"pattern-set"`
	// Rendering and OCR.
	Pdftoppm     string        `mapstructure:"pdftoppm"`
	Tesseract    string        `mapstructure:"tesseract"`
	TessdataDir  string        `mapstructure:"tessdata-dir"`
	DPI          int           `mapstructure:"dpi"`
	MinTextChars int           `mapstructure:"min-text-chars"`
	MaxPages     int           `mapstructure:"max-pages"`
	OCRLanguage  string        `mapstructure:"ocr-language"`
	OCRTimeout   time.Duration `mapstructure:"ocr-timeout"`
	// Interpretation.
	Locale    string `mapstructure:"locale"`
	TargetRFC string `mapstructure:"target-rfc"`
	// Execution.
	Workers  int    `mapstructure:"workers"`
	Output   string `mapstructure:"output"`
	LogLevel string `mapstructure:"log-level"`
}

// Load builds a Config from command-line args and the environment.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("docextract", pflag.ContinueOnError)

	fs.StringP("input", "i", ".", "directory with input PDF documents")
	fs.String("file-prefix", "", "only ingest files whose name matches this regexp")
	fs.StringP("family", "f", "", "document family; empty enables auto-detection")
	fs.String("pattern-set", "", "JSON file with a user-defined pattern set")
	fs.String("pdftoppm", "pdftoppm", "pdftoppm binary")
	fs.String("tesseract", "tesseract", "tesseract binary")
	fs.String("tessdata-dir", "", "tesseract language data directory")
	fs.Int("dpi", 300, "rasterization DPI for scanned pages")
	fs.Int("min-text-chars", 80, "minimum characters for a usable text layer")
	fs.Int("max-pages", 0, "process at most this many pages per document; 0 means all")
	fs.StringP("ocr-language", "l", "spa", "OCR language")
	fs.Duration("ocr-timeout", 2*time.Minute, "per-page OCR timeout")
	fs.String("locale", "es-MX", "locale for amounts and dates")
	fs.String("target-rfc", "", "keep only invoices received by this RFC")
	fs.IntP("workers", "w", 4, "documents processed in parallel")
	fs.StringP("output", "o", "extraccion.xlsx", "output workbook path")
	fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	v := viper.New()
	v.SetEnvPrefix("DOCEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, common.WrapError(err, "bind flags")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, common.WrapError(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input directory is required", common.ErrInvalidInput)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is required", common.ErrInvalidInput)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", common.ErrInvalidInput)
	}
	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("%w: dpi %d out of range [72, 1200]", common.ErrInvalidInput, c.DPI)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("%w: max-pages cannot be negative", common.ErrInvalidInput)
	}
	if c.OCRTimeout <= 0 {
		return fmt.Errorf("%w: ocr-timeout must be positive", common.ErrInvalidInput)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps the configured name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", common.ErrInvalidInput, s)
	}
}
