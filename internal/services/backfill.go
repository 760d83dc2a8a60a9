package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/Lllllllleong/documentextractor/internal/models"
	"golang.org/x/sync/errgroup"
)

// ObjectLister enumerates object names under a prefix.
type ObjectLister interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Extractor processes a single extraction request.
type Extractor interface {
	Process(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResponse
}

type BackfillOptions struct {
	Bucket      string
	Prefix      string
	Concurrency int
	DryRun      bool
}

// BackfillSummary reports the outcome of a backfill run. FailedKeys is sorted.
type BackfillSummary struct {
	Listed     int
	Succeeded  int
	FailedKeys []string
}

// Backfill runs the extractor over every object under opts.Prefix with at most
// opts.Concurrency invocations in flight. Failed invocations are collected, not fatal.
func Backfill(ctx context.Context, lister ObjectLister, extractor Extractor, opts BackfillOptions) (*BackfillSummary, error) {
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", opts.Concurrency)
	}

	logCtx := slog.With("bucket", opts.Bucket, "prefix", opts.Prefix)
	keys, err := lister.List(ctx, opts.Bucket, opts.Prefix)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Listed objects for backfill.", "objectCount", len(keys), "dryRun", opts.DryRun)

	summary := &BackfillSummary{Listed: len(keys)}
	if opts.DryRun {
		for _, key := range keys {
			logCtx.Info("Would extract object.", "fileKey", key)
		}
		return summary, nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)
	var mu sync.Mutex

	for _, key := range keys {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resp := extractor.Process(gctx, &models.ExtractionRequest{FileKey: key})

			mu.Lock()
			defer mu.Unlock()
			if resp.StatusCode == http.StatusOK {
				summary.Succeeded++
			} else {
				summary.FailedKeys = append(summary.FailedKeys, key)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("backfill interrupted: %w", err)
	}

	sort.Strings(summary.FailedKeys)
	logCtx.Info("Backfill complete.", "succeeded", summary.Succeeded, "failed", len(summary.FailedKeys))
	return summary, nil
}
