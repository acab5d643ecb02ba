package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage saved analyses",
		Long: `Browse and manage analyses saved with --save or through the server.

The database location is history.path in the configuration
(default $XDG_DATA_HOME/canescan/history.db).`,
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryShowCmd(a),
		newHistoryReportCmd(a),
		newHistoryDeleteCmd(a),
		newHistoryClearCmd(a),
	)
	return cmd
}

// withHistory opens the store for the duration of fn.
func (a *app) withHistory(fn func(*history.Store) error) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withHistory(func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch format {
				case outputFormatJSON:
					return writeJSON(out, entries)
				case outputFormatText:
				default:
					return fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
				}

				if len(entries) == 0 {
					_, _ = fmt.Fprintln(out, "No saved analyses.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tDATE\tFILE\tPEST\tCONFIDENCE")
				for _, e := range entries {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%\n",
						e.ID, e.CreatedAt.UTC().Format(time.DateTime), e.Filename, e.Result.PestName, e.Result.Confidence*100)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", outputFormatText, "output format: text or json")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHistory(func(store *history.Store) error {
				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch format {
				case outputFormatJSON:
					return writeJSON(out, e)
				case outputFormatText:
					text, err := pipeline.ToPlainText(&e.Result)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(out, "ID: %s\nSaved: %s\n", e.ID, e.CreatedAt.UTC().Format(time.DateTime))
					_, err = fmt.Fprint(out, text)
					return err
				default:
					return fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", outputFormatText, "output format: text or json")
	return cmd
}

func newHistoryReportCmd(a *app) *cobra.Command {
	var (
		output string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Render the plain-text report of a saved analysis",
		Long: `Render the plain-text pest report of a saved analysis. The report is
printed to stdout unless --output or --dir is given; --dir uses the
standard pest-report-<pest>-<date>.txt file name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && dir != "" {
				return errors.New("--output and --dir are mutually exclusive")
			}
			return a.withHistory(func(store *history.Store) error {
				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if dir != "" {
					if err := os.MkdirAll(dir, 0o750); err != nil {
						return err
					}
					output = filepath.Join(dir, history.ReportFilename(e))
				}
				return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), history.RenderReport(e), output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "write the report into this directory")
	return cmd
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved analyses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHistory(func(store *history.Store) error {
				for _, id := range args {
					if err := store.Delete(cmd.Context(), id); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
				}
				return nil
			})
		},
	}
}

func newHistoryClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			return a.withHistory(func(store *history.Store) error {
				n, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting all entries")
	return cmd
}
