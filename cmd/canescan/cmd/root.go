package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/canescan/internal/config"
	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/MeKo-Tech/canescan/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const skipConfigAnnotation = "canescan/skip-config"

// app carries the state shared by one command tree: its own viper
// instance, the resolved configuration and the flag-to-key bindings.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	bindings map[*cobra.Command]map[string]string
}

// NewRootCommand builds a fresh command tree. Each tree has its own
// configuration state, so tests can execute commands repeatedly.
func NewRootCommand() *cobra.Command {
	a := &app{
		v:        viper.New(),
		bindings: make(map[*cobra.Command]map[string]string),
	}

	rootCmd := &cobra.Command{
		Use:   "canescan",
		Short: "Identify sugarcane pests in field photos",
		Long: `canescan identifies common sugarcane pests in field photographs and
suggests control measures.

Each photo goes through a local color and texture analysis, an optional
hosted object-detection service and a filename hint. The detections are
combined into one primary result with a confidence score, an infestation
level and recommendations.

Examples:
  canescan analyze talhao3_broca.jpg
  canescan batch ./fotos --recursive --format csv --output results.csv
  canescan history list
  canescan serve --port 8080`,
		Version:           version.String(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("canescan version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/canescan, /etc/canescan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("history-db", "", "history database path (default $XDG_DATA_HOME/canescan/history.db)")
	a.bind(rootCmd, map[string]string{
		"verbose":    "verbose",
		"log-level":  "log_level",
		"history-db": "history.path",
	})

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newBatchCmd(a),
		newPestsCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

// bind records which viper key each named flag of cmd overrides.
func (a *app) bind(cmd *cobra.Command, flagToKey map[string]string) {
	a.bindings[cmd] = flagToKey
}

// bindFlags binds the flags of cmd and its ancestors. Only the executing
// command is bound so that commands sharing a key do not override each
// other.
func (a *app) bindFlags(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for name, key := range a.bindings[c] {
			if err := a.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}
	return nil
}

// setup resolves configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.bindFlags(cmd); err != nil {
		return err
	}

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		d := config.DefaultConfig()
		a.cfg = &d
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			a.cfg.Verbose = true
		}
	} else {
		cfg, err := config.NewLoaderWithViper(a.v).LoadWithFile(a.cfgFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		a.cfg = cfg
	}

	setupLogging(cmd.ErrOrStderr(), a.cfg)
	slog.Debug("configuration loaded", "file", a.v.ConfigFileUsed())
	return nil
}

// setupLogging installs a JSON slog handler. Logs go to w so that command
// output on stdout stays machine readable.
func setupLogging(w io.Writer, cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// newAnalyzer builds the analyzer from the resolved configuration.
func (a *app) newAnalyzer() (*pipeline.Analyzer, error) {
	an, err := pipeline.NewBuilder().WithConfig(a.cfg.ToPipelineConfig()).Build()
	if err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}
	return an, nil
}

// openHistory opens the configured history database.
func (a *app) openHistory() (*history.Store, error) {
	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		return nil, err
	}
	slog.Debug("history opened", "path", a.cfg.History.Path)
	return store, nil
}

// writeOutput writes output to file, or to w when file is empty.
func writeOutput(w, status io.Writer, output, file string) error {
	if file == "" {
		_, err := io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(file, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(status, "Results written to %s\n", file)
	return nil
}
