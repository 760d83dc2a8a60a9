package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/documentextractor/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	prefix := flag.String("prefix", "", "only extract objects whose names start with this prefix")
	concurrency := flag.Int("concurrency", 4, "maximum number of extractions in flight")
	dryRun := flag.Bool("dry-run", false, "list matching objects without extracting them")
	flag.Parse()

	if err := run(*prefix, *concurrency, *dryRun); err != nil {
		slog.Error("Backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(prefix string, concurrency int, dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := services.NewExtractor(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}
	defer func() {
		if err := extractor.Close(); err != nil {
			slog.Warn("Failed to close clients", "error", err)
		}
	}()

	lister := extractor.ObjectLister()
	if lister == nil {
		return fmt.Errorf("object store does not support listing")
	}

	summary, err := services.Backfill(ctx, lister, extractor, services.BackfillOptions{
		Bucket:      extractor.Config().SourceBucket,
		Prefix:      prefix,
		Concurrency: concurrency,
		DryRun:      dryRun,
	})
	if err != nil {
		return err
	}

	if n := len(summary.FailedKeys); n > 0 {
		for _, key := range summary.FailedKeys {
			slog.Warn("Extraction failed for object.", "fileKey", key)
		}
		return fmt.Errorf("%d of %d extractions failed", n, summary.Listed)
	}
	return nil
}
