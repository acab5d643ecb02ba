package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/MeKo-Tech/canescan/internal/batch"
	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/imageio"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Identify the pest in one or more field photos",
		Long: `Analyze one or more field photos and print the identified pest, the
confidence, the infestation level and control recommendations.

Supported formats: JPEG, PNG, WebP

Examples:
  canescan analyze broca_talhao3.jpg
  canescan analyze a.jpg b.png --format json
  canescan analyze photo.jpg --overlay-dir overlays --save`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args, save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the results in the analysis history")
	a.bind(cmd, mergeBindings(addOutputFlags(cmd.Flags()), addAnalysisFlags(cmd.Flags())))
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, paths []string, save bool) error {
	ctx := cmd.Context()
	out := a.cfg.Output

	an, err := a.newAnalyzer()
	if err != nil {
		return err
	}

	var store *history.Store
	if save {
		if store, err = a.openHistory(); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	overlay := batch.Config{
		OverlayDir:        out.OverlayDir,
		OverlayColor:      out.OverlayColor,
		OverlayOtherColor: out.OverlayOtherColor,
	}

	items := make([]batch.Item, 0, len(paths))
	for _, path := range paths {
		data, mime, err := imageio.LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res, err := an.Analyze(ctx, data, filepath.Base(path), mime)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if out.OverlayDir != "" && !res.Failed() {
			written, err := batch.SaveOverlay(data, mime, res, path, overlay)
			if err != nil {
				return fmt.Errorf("failed to write overlay for %s: %w", path, err)
			}
			slog.Info("overlay written", "file", path, "overlay", written)
		}
		if store != nil {
			entry, err := store.Append(ctx, filepath.Base(path), res)
			if err != nil {
				return fmt.Errorf("failed to save %s to history: %w", path, err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s as %s\n", path, entry.ID)
		}
		items = append(items, batch.Item{Path: path, Result: res})
	}

	output, err := formatAnalyses(items, out.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), output, out.File)
}

// formatAnalyses renders a single result on its own and several results
// in the batch layout.
func formatAnalyses(items []batch.Item, format string) (string, error) {
	if len(items) == 0 {
		return "", errors.New("no results")
	}
	if len(items) > 1 {
		output, err := (&batch.Result{Items: items}).FormatResults(format)
		if err != nil {
			return "", err
		}
		return terminate(output), nil
	}

	res := items[0].Result
	var (
		output string
		err    error
	)
	switch format {
	case outputFormatJSON:
		output, err = pipeline.ToJSON(res)
	case outputFormatCSV:
		output, err = pipeline.ToCSV(res)
	case outputFormatText, "":
		output, err = pipeline.ToPlainText(res)
	default:
		return "", fmt.Errorf("invalid output format: %s (must be one of: text, json, csv)", format)
	}
	if err != nil {
		return "", err
	}
	return terminate(output), nil
}

// terminate ensures output ends with a newline.
func terminate(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
