// Package batch analyzes many field photos at once on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoImages is returned when discovery finds nothing to analyze.
var ErrNoImages = errors.New("no image files found")

// Process discovers images under paths and analyzes them. Per-file failures
// are recorded on their Item; with FailFast the first one aborts the run and
// is returned.
func Process(ctx context.Context, analyzer Analyzer, paths []string, config Config) (*Result, error) {
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	start := time.Now()
	items, err := processFilesParallel(ctx, analyzer, files, workers, config)
	if err != nil {
		return nil, err
	}

	return &Result{
		Items:       items,
		Duration:    time.Since(start),
		WorkerCount: workers,
	}, nil
}
