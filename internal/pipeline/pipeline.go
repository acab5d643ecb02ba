// Package pipeline turns one uploaded photo into an AnalysisResult by
// running the pixel analyzers, the filename matcher and the optional remote
// classifier, then combining their outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/MeKo-Tech/canescan/internal/analysis"
	"github.com/MeKo-Tech/canescan/internal/imageio"
	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/MeKo-Tech/canescan/internal/remote"
)

// Heuristics tunes how analyzer outputs are turned into pest guesses.
type Heuristics struct {
	FilenameBoost       float64
	BoostCap            float64
	MaxRegionConfidence float64
	WhiteRatio          float64
	BrownRatio          float64
	GreenBrownRatio     float64
}

// DefaultHeuristics returns the standard combination settings.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		FilenameBoost:       0.1,
		BoostCap:            0.95,
		MaxRegionConfidence: 0.9,
		WhiteRatio:          0.10,
		BrownRatio:          0.10,
		GreenBrownRatio:     0.25,
	}
}

// Config holds configuration for the analysis pipeline and its components.
type Config struct {
	Blocks        analysis.BlockConfig
	Heuristics    Heuristics
	Remote        remote.Config
	MatchFilename bool
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Blocks:        analysis.DefaultBlockConfig(),
		Heuristics:    DefaultHeuristics(),
		Remote:        remote.DefaultConfig(),
		MatchFilename: true,
	}
}

// Validate checks the configuration for values the analyzers cannot use.
func (c Config) Validate() error {
	if err := c.Blocks.Validate(); err != nil {
		return err
	}
	h := c.Heuristics
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"filename boost", h.FilenameBoost},
		{"boost cap", h.BoostCap},
		{"max region confidence", h.MaxRegionConfidence},
		{"white ratio", h.WhiteRatio},
		{"brown ratio", h.BrownRatio},
		{"green-brown ratio", h.GreenBrownRatio},
		{"remote confidence", c.Remote.Confidence},
		{"remote overlap", c.Remote.Overlap},
	} {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", f.name, f.value)
		}
	}
	return nil
}

// Classifier is the remote detection boundary. Implementations never fail;
// problems yield an empty slice.
type Classifier interface {
	Classify(ctx context.Context, data []byte) []remote.Prediction
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClassifier overrides the remote classifier. Passing nil disables it.
func WithClassifier(c Classifier) Option {
	return func(a *Analyzer) {
		a.classifier = c
		a.classifierSet = true
	}
}

// WithLogger sets the logger used for degraded-path diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer runs the full analysis for one image at a time. It holds no
// per-image state and is safe for concurrent use.
type Analyzer struct {
	cfg           Config
	classifier    Classifier
	classifierSet bool
	logger        *slog.Logger
	decode        func(data []byte, mimeType string) (*imageio.PixelBuffer, error)
}

// NewAnalyzer creates an analyzer. A remote client is created from
// cfg.Remote when it is enabled and no classifier option was given.
func NewAnalyzer(cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, logger: slog.Default(), decode: imageio.Decode}
	for _, opt := range opts {
		opt(a)
	}
	if !a.classifierSet && cfg.Remote.Enabled() {
		a.classifier = remote.NewClient(cfg.Remote)
	}
	return a
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// RemoteEnabled reports whether a remote classifier is wired in.
func (a *Analyzer) RemoteEnabled() bool { return a.classifier != nil }

// Analyze decodes data and returns the combined result. Only a DecodeError
// is returned as an error; every other failure degrades to a lower
// confidence result or, at worst, the terminal error result.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, filename, mimeType string) (res *AnalysisResult, err error) {
	var buf *imageio.PixelBuffer
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analysis panicked", "filename", filename, "panic", r, "stack", string(debug.Stack()))
			res, err = errorResult(buf, filename, fmt.Errorf("internal error: %v", r)), nil
		}
	}()

	buf, err = a.decode(data, mimeType)
	if err != nil {
		return nil, err
	}

	in := CombineInput{Width: buf.Width, Height: buf.Height}

	if profile, perr := analysis.Profile(buf); perr != nil {
		a.logger.Warn("color profile failed", "filename", filename, "error", perr)
	} else {
		in.Profile = profile
		a.logger.Debug("color profile", "filename", filename, "ratios", profile.Map())
	}

	if regions, berr := analysis.ScoreBlocks(buf, a.cfg.Blocks); berr != nil {
		a.logger.Warn("block scoring failed", "filename", filename, "error", berr)
	} else {
		in.Regions = regions
	}

	if a.cfg.MatchFilename {
		if m, ok := knowledge.MatchFilename(filename); ok {
			in.Filename = &m
		}
	}

	if a.classifier != nil {
		in.Predictions = a.classifier.Classify(ctx, data)
	}

	res, cerr := Combine(in, a.cfg.Heuristics)
	if cerr != nil {
		a.logger.Error("combined result failed validation", "filename", filename, "error", cerr)
		return errorResult(buf, filename, cerr), nil
	}
	if res.Source == SourceDefault {
		a.logger.Debug("using fallback detection", "filename", filename, "reason", ErrNoDetection)
	}
	res.Filename = filename

	a.logger.Debug("analysis complete",
		"filename", filename,
		"pest_id", res.PestID,
		"confidence", res.Confidence,
		"method", res.AnalysisMethod,
		"candidates", len(in.Regions),
		"predictions", len(in.Predictions))
	return res, nil
}

// AnalyzeFile loads path from disk and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*AnalysisResult, error) {
	data, mimeType, err := imageio.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, data, path, mimeType)
}

// IsDecodeError reports whether err came from the image loader.
func IsDecodeError(err error) bool {
	return errors.Is(err, imageio.ErrDecode)
}

func errorResult(buf *imageio.PixelBuffer, filename string, cause error) *AnalysisResult {
	res := &AnalysisResult{
		PestID:           knowledge.ErrorPestID,
		PestName:         "Analysis error",
		ScientificName:   undeterminedSpecs,
		Description:      "The image could not be analyzed. Try again or consult a specialist.",
		Confidence:       0,
		InfestationLevel: InfestationUnknown,
		Recommendations:  knowledge.ErrorRecommendations(),
		AnalysisMethod:   "Error",
		AllDetections:    []Detection{},
		Filename:         filename,
		Error:            cause.Error(),
	}
	if buf != nil {
		res.ImageWidth = buf.Width
		res.ImageHeight = buf.Height
	}
	return res
}
