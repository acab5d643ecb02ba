package pipeline

import (
	"time"
)

// Builder constructs an Analyzer with fluent configuration.
type Builder struct {
	cfg  Config
	opts []Option
}

// NewBuilder creates a new builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithBlockSize sets the scorer's block edge length in pixels.
func (b *Builder) WithBlockSize(size int) *Builder {
	if size > 0 {
		b.cfg.Blocks.BlockSize = size
	}
	return b
}

// WithSuspicionThreshold sets the score a block must exceed to be kept.
func (b *Builder) WithSuspicionThreshold(threshold float64) *Builder {
	if threshold >= 0 {
		b.cfg.Blocks.Threshold = threshold
	}
	return b
}

// WithMaxCandidates limits how many candidate regions are kept.
func (b *Builder) WithMaxCandidates(n int) *Builder {
	if n > 0 {
		b.cfg.Blocks.MaxCandidates = n
	}
	return b
}

// WithFilenameMatching toggles the filename keyword hint.
func (b *Builder) WithFilenameMatching(enabled bool) *Builder {
	b.cfg.MatchFilename = enabled
	return b
}

// WithFilenameBoost sets the increment and cap applied when the filename
// agrees with the primary detection.
func (b *Builder) WithFilenameBoost(inc, limit float64) *Builder {
	if inc >= 0 {
		b.cfg.Heuristics.FilenameBoost = inc
	}
	if limit > 0 {
		b.cfg.Heuristics.BoostCap = limit
	}
	return b
}

// WithRemote configures the remote classifier endpoint and API key.
func (b *Builder) WithRemote(endpoint, apiKey string) *Builder {
	if endpoint != "" {
		b.cfg.Remote.Endpoint = endpoint
	}
	b.cfg.Remote.APIKey = apiKey
	return b
}

// WithRemoteThresholds sets the confidence and overlap sent to the service.
func (b *Builder) WithRemoteThresholds(confidence, overlap float64) *Builder {
	if confidence > 0 {
		b.cfg.Remote.Confidence = confidence
	}
	if overlap > 0 {
		b.cfg.Remote.Overlap = overlap
	}
	return b
}

// WithRemoteTimeout bounds each remote request.
func (b *Builder) WithRemoteTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.cfg.Remote.Timeout = d
	}
	return b
}

// WithClassifier injects a classifier in place of the HTTP client.
func (b *Builder) WithClassifier(c Classifier) *Builder {
	b.opts = append(b.opts, WithClassifier(c))
	return b
}

// Config returns the current configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and creates the analyzer.
func (b *Builder) Build() (*Analyzer, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return NewAnalyzer(b.cfg, b.opts...), nil
}
