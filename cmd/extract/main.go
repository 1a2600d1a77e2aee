// Command extract runs the extraction pipeline over local files and prints
// one JSON result per file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"agrofin/internal/config"
	"agrofin/internal/llm"
	_ "agrofin/internal/llm/providers"
	"agrofin/internal/logging"
	"agrofin/internal/pipeline"
	"agrofin/internal/service"
	"agrofin/internal/textextract"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	concurrency := fs.Int("concurrency", 0, "documents processed at once (default from config)")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	failOnError := fs.Bool("fail-on-error", false, "exit non-zero when any document fails")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: extract [flags] FILE...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("no input files")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	generator, err := llm.Build(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("initialize llm providers: %w", err)
	}
	extractor := textextract.Auto{
		PDF: textextract.NewPdftotextExtractor(&cfg.Extractor, textextract.ExecRunner{Log: logger.Named("pdftotext")}),
	}
	processor := pipeline.New(pipeline.Config{
		PayloadLogLimit:        cfg.Pipeline.PayloadLogLimit,
		StrictInstallmentCount: cfg.Pipeline.StrictInstallmentCount,
	}, extractor, generator, logger.Named("pipeline"))

	n := *concurrency
	if n <= 0 {
		n = cfg.Batch.Concurrency
	}
	batch := service.NewBatchService(processor, n, logger.Named("batch"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, batchErr := batch.ProcessFiles(ctx, fs.Args())

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	failed := 0
	for _, res := range results {
		if res.Filename == "" {
			continue
		}
		if !res.Success {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	logger.Info("extract: finished",
		zap.Int("files", len(results)),
		zap.Int("failed", failed),
	)

	if batchErr != nil {
		return batchErr
	}
	if *failOnError && failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}
