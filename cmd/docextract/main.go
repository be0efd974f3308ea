package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/haycash/docextract/internal/aggregate"
	"github.com/haycash/docextract/internal/config"
	"github.com/haycash/docextract/internal/export"
	"github.com/haycash/docextract/internal/extract"
	"github.com/haycash/docextract/internal/ingest"
	"github.com/haycash/docextract/internal/normalize"
	"github.com/haycash/docextract/internal/ocr"
	"github.com/haycash/docextract/internal/patterns"
	"github.com/haycash/docextract/internal/pipeline"
	"github.com/haycash/docextract/internal/render"
	"github.com/haycash/docextract/internal/textacq"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docextract:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib := patterns.NewLibrary()
	if cfg.PatternSet != "" {
		fam, err := patterns.LoadFamilyFile(cfg.PatternSet)
		if err != nil {
			return err
		}
		if err := lib.Register(fam); err != nil {
			return err
		}
		logger.Info("patterns.registered", "family", fam.Name, "source", cfg.PatternSet)
	}

	loc, err := normalize.NewLocale(cfg.Locale)
	if err != nil {
		return err
	}

	runner := ocr.ExecRunner{}
	renderer := render.NewRenderer(render.Config{
		Pdftoppm:     cfg.Pdftoppm,
		DPI:          cfg.DPI,
		MinTextChars: cfg.MinTextChars,
		MaxPages:     cfg.MaxPages,
	}, runner, logger)

	recognizer := ocr.NewTesseract(ocr.Config{
		Tesseract:   cfg.Tesseract,
		TessdataDir: cfg.TessdataDir,
		PSM:         6,
	}, runner, logger)

	acquirer := textacq.NewAcquirer(recognizer, textacq.Config{
		Language: cfg.OCRLanguage,
		Timeout:  cfg.OCRTimeout,
	}, logger)

	proc := pipeline.NewProcessor(
		renderer,
		acquirer,
		extract.NewExtractor(logger),
		normalize.NewNormalizer(loc, logger),
		lib,
		logger,
	)

	scanner, err := ingest.NewScanner(cfg.FilePrefix, logger)
	if err != nil {
		return err
	}
	paths, err := scanner.Scan(cfg.InputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents found under %s", cfg.InputDir)
	}

	inputs := make([]pipeline.Input, len(paths))
	for i, p := range paths {
		inputs[i] = pipeline.Input{Path: p, Family: cfg.Family}
	}

	pred := aggregate.All
	if cfg.TargetRFC != "" {
		pred = aggregate.ReceivedInvoices(cfg.TargetRFC)
	}

	out := proc.ProcessBatch(ctx, inputs, pred, cfg.Workers)
	for _, res := range out.Results {
		if res.Err != nil {
			logger.Error("document.failed", "path", res.Input.Path, "error", res.Err)
		}
	}
	if len(out.Groups) == 0 {
		return fmt.Errorf("no records extracted from %d documents", len(inputs))
	}

	if err := export.NewExporter(logger).Write(out.Groups, cfg.Output); err != nil {
		return err
	}

	logger.Info("docextract.done",
		"documents", len(inputs),
		"failed", out.Failed,
		"groups", len(out.Groups),
		"output", cfg.Output,
	)
	return nil
}
