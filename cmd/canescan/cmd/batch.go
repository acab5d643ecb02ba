package cmd

import (
	"log/slog"
	"time"

	"github.com/MeKo-Tech/canescan/internal/batch"
	"github.com/MeKo-Tech/canescan/internal/config"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		save  bool
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "batch <path>...",
		Short: "Analyze many photos in parallel",
		Long: `Analyze every supported image in the given files and directories on a
pool of workers. Results are reported in input order. A file that cannot
be decoded is reported and does not stop the batch unless --fail-fast is
set.

Examples:
  canescan batch ./fotos
  canescan batch ./fotos --recursive --workers 8 --format csv -o results.csv
  canescan batch ./fotos --include "*broca*" --exclude "*_overlay.png"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args, save, quiet)
		},
	}

	d := config.DefaultConfig()
	f := cmd.Flags()
	f.IntP("workers", "w", d.Batch.Workers, "number of parallel workers")
	f.BoolP("recursive", "r", d.Batch.Recursive, "descend into subdirectories")
	f.Bool("fail-fast", d.Batch.FailFast, "stop at the first file that fails")
	f.StringSlice("include", nil, "only analyze files whose name matches one of these glob patterns")
	f.StringSlice("exclude", nil, "skip files whose name matches one of these glob patterns")
	f.BoolVar(&save, "save", false, "store the results in the analysis history")
	f.BoolVarP(&quiet, "quiet", "q", false, "replace the progress bar with log lines and suppress statistics")

	a.bind(cmd, mergeBindings(
		addOutputFlags(f),
		addAnalysisFlags(f),
		map[string]string{
			"workers":   "batch.workers",
			"recursive": "batch.recursive",
			"fail-fast": "batch.fail_fast",
			"include":   "batch.include",
			"exclude":   "batch.exclude",
		},
	))
	return cmd
}

// quietLogInterval is how many images pass between progress log lines in
// quiet mode.
const quietLogInterval = 25

func (a *app) runBatch(cmd *cobra.Command, paths []string, save, quiet bool) error {
	an, err := a.newAnalyzer()
	if err != nil {
		return err
	}

	cfg := batch.Config{
		Workers:           a.cfg.Batch.Workers,
		FailFast:          a.cfg.Batch.FailFast,
		Recursive:         a.cfg.Batch.Recursive,
		IncludePatterns:   a.cfg.Batch.Include,
		ExcludePatterns:   a.cfg.Batch.Exclude,
		OverlayDir:        a.cfg.Output.OverlayDir,
		OverlayColor:      a.cfg.Output.OverlayColor,
		OverlayOtherColor: a.cfg.Output.OverlayOtherColor,
	}
	if quiet {
		cfg.Progress = batch.NewLogProgressCallback(slog.Default(), quietLogInterval)
	} else {
		cfg.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Analyzing").
			WithUpdateInterval(200 * time.Millisecond)
	}
	if save {
		store, err := a.openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		cfg.Recorder = store
	}

	res, err := batch.Process(cmd.Context(), an, paths, cfg)
	if err != nil {
		return err
	}
	slog.Debug("batch finished", "images", len(res.Items), "duration", res.Duration)

	if err := res.SaveResults(cmd.OutOrStdout(), a.cfg.Output.Format, a.cfg.Output.File, quiet); err != nil {
		return err
	}
	res.PrintStats(cmd.ErrOrStderr(), quiet)
	return nil
}
