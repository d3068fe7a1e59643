package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/urlsentry/urlsentry/internal/model"
)

// BatchProcessor handles concurrent scanning of multiple target URLs.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-scan execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each scan.
	// We use a factory to ensure each scan gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent scans.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed scan results.
	// Access is synchronized via mutex.
	results []*model.ScanResult
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 10 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each scan to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// scans and allows for per-scan customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     10,
		results:         make([]*model.ScanResult, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// NewResult builds the scan result shell for a target URL: scheme
// normalization, origin-domain extraction, and the initial timestamped
// record. A target that cannot be parsed yields a result carrying the
// parse error; the caller can still report it alongside the others.
func NewResult(target string) *model.ScanResult {
	normalized := target
	if !strings.Contains(normalized, "://") {
		// A bare hostname is almost always meant as a web URL.
		normalized = "https://" + normalized
	}

	u, err := url.Parse(normalized)
	if err != nil || u.Hostname() == "" {
		result := model.NewScanResult(target, "")
		result.Error = err
		result.ErrorMessage = "unparseable target URL"
		if err != nil {
			result.ErrorMessage = err.Error()
		}
		return result
	}

	return model.NewScanResult(normalized, strings.ToLower(u.Hostname()))
}

// ProcessBatch scans multiple target URLs concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each target gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all results collected, even for targets that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.ScanResult, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.ScanResult, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("scanning target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			result := NewResult(target)

			// An unparseable target is recorded but never scanned.
			if result.Error == nil {
				pipeline := bp.pipelineFactory()
				if err := pipeline.Execute(ctx, result); err != nil {
					bp.logger.Warn("scan failed",
						"target", target,
						"error", err,
					)
				}
			}

			// Store result regardless of error.
			// The result carries error information if the scan failed.
			bp.mu.Lock()
			bp.results[i] = result
			bp.mu.Unlock()

			// Don't return errors to errgroup - we want to continue
			// other scans. The error is recorded in the result.
			return nil
		})
	}

	// Wait for all scans to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback scans multiple targets and calls a callback
// for each completed scan. This is useful for streaming results.
//
// The callback receives the result and the index of the target in the
// original slice. The callback is called from the goroutine that completed
// the scan, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(result *model.ScanResult, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			result := NewResult(target)
			if result.Error == nil {
				pipeline := bp.pipelineFactory()
				_ = pipeline.Execute(ctx, result) //nolint:errcheck // Error is stored in the result
			}

			// Call the callback with the result
			callback(result, i)

			return nil
		})
	}

	return g.Wait()
}
