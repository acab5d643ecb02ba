package batch

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/canescan/internal/imageio"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
)

type fileJob struct {
	index int
	path  string
}

type fileResult struct {
	index int
	item  Item
}

// processSingleFile loads, analyzes and post-processes one file.
func processSingleFile(ctx context.Context, analyzer Analyzer, path string, config Config) Item {
	item := Item{Path: path}

	data, mime, err := imageio.LoadFile(path)
	if err != nil {
		item.Err = fmt.Errorf("failed to load %s: %w", path, err)
		return item
	}

	res, err := analyzer.Analyze(ctx, data, filepath.Base(path), mime)
	if err != nil {
		item.Err = fmt.Errorf("analysis failed for %s: %w", path, err)
		return item
	}
	item.Result = res

	if config.OverlayDir != "" && !res.Failed() {
		if _, err := SaveOverlay(data, mime, res, path, config); err != nil {
			slog.Warn("failed to write overlay", "file", path, "error", err)
		}
	}
	if config.Recorder != nil {
		if _, err := config.Recorder.Append(ctx, filepath.Base(path), res); err != nil {
			slog.Warn("failed to save history entry", "file", path, "error", err)
		}
	}
	return item
}

// SaveOverlay renders the detection boxes over the source image and writes
// <name>_overlay.png into config.OverlayDir. It returns the written path.
func SaveOverlay(data []byte, mime string, res *pipeline.AnalysisResult, path string, config Config) (string, error) {
	buf, err := imageio.Decode(data, mime)
	if err != nil {
		return "", err
	}
	ov := pipeline.RenderOverlay(buf.ToImage(), res,
		pipeline.ParseHexColor(config.OverlayColor), pipeline.ParseHexColor(config.OverlayOtherColor))
	if ov == nil {
		return "", fmt.Errorf("overlay rendering failed")
	}

	if err := os.MkdirAll(config.OverlayDir, 0o750); err != nil {
		return "", err
	}
	base := filepath.Base(path)
	outPath := filepath.Join(config.OverlayDir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
	f, err := os.Create(outPath) //nolint:gosec // G304: overlay dir comes from the CLI
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, ov); err != nil {
		_ = f.Close()
		return "", err
	}
	return outPath, f.Close()
}

// processFilesParallel analyzes files on a worker pool and returns items in
// input order.
func processFilesParallel(ctx context.Context, analyzer Analyzer, files []string,
	workers int, config Config) ([]Item, error) {
	progress := config.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(files))
	defer progress.OnComplete()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan fileJob, len(files))
	results := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, analyzer, jobs, results, &wg, config)
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case jobs <- fileJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]Item, len(files))
	processed := 0
	var firstErr error

	for r := range results {
		items[r.index] = r.item
		processed++
		progress.OnProgress(processed, len(files))

		if r.item.Err != nil {
			progress.OnError(r.index, r.item.Err)
			if config.FailFast && firstErr == nil {
				firstErr = r.item.Err
				cancel()
			}
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// worker analyzes files from the jobs channel.
func worker(ctx context.Context, analyzer Analyzer, jobs <-chan fileJob, results chan<- fileResult,
	wg *sync.WaitGroup, config Config) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			item := processSingleFile(ctx, analyzer, job.path, config)
			select {
			case results <- fileResult{index: job.index, item: item}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
