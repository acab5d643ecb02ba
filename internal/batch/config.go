package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
)

// Analyzer is the part of *pipeline.Analyzer the batch runner needs.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, filename, mimeType string) (*pipeline.AnalysisResult, error)
}

// Recorder saves finished analyses, typically a *history.Store.
type Recorder interface {
	Append(ctx context.Context, filename string, res *pipeline.AnalysisResult) (*history.Entry, error)
}

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing
	Workers  int
	FailFast bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output side effects
	OverlayDir        string
	OverlayColor      string
	OverlayOtherColor string
	Recorder          Recorder

	// Progress reporting; nil means none
	Progress ProgressCallback
}

// Item is the outcome for one discovered file.
type Item struct {
	Path   string
	Result *pipeline.AnalysisResult
	Err    error
}

// Failed reports whether the file could not be analyzed.
func (it Item) Failed() bool {
	return it.Err != nil || it.Result == nil || it.Result.Failed()
}

// Result holds the result of batch processing, in discovery order.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Stats summarises a batch run.
type Stats struct {
	Total           int
	Processed       int
	Failed          int
	ByPest          map[string]int
	TotalDuration   time.Duration
	AveragePerImage time.Duration
}

// Stats computes processing statistics.
func (r *Result) Stats() Stats {
	s := Stats{Total: len(r.Items), ByPest: make(map[string]int), TotalDuration: r.Duration}
	for _, it := range r.Items {
		if it.Failed() {
			s.Failed++
			continue
		}
		s.Processed++
		s.ByPest[it.Result.PestID]++
	}
	if s.Total > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Total)
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Items, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, _ = fmt.Fprint(w, output)
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))

	if len(stats.ByPest) == 0 {
		return
	}
	ids := make([]string, 0, len(stats.ByPest))
	for id := range stats.ByPest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	_, _ = fmt.Fprintf(w, "  Detections:\n")
	for _, id := range ids {
		_, _ = fmt.Fprintf(w, "    %s: %d\n", id, stats.ByPest[id])
	}
}
