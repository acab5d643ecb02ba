package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/canescan/internal/analysis"
	"github.com/MeKo-Tech/canescan/internal/imageio"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/MeKo-Tech/canescan/internal/remote"
)

// ValidOutputFormats lists the formats accepted by analyze and batch.
var ValidOutputFormats = []string{"text", "json", "csv"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	blocks := analysis.DefaultBlockConfig()
	heur := pipeline.DefaultHeuristics()
	rc := remote.DefaultConfig()

	return Config{
		LogLevel: "info",
		Verbose:  false,
		Analysis: AnalysisConfig{
			BlockSize:           blocks.BlockSize,
			MaxCandidates:       blocks.MaxCandidates,
			SuspicionThreshold:  blocks.Threshold,
			DarkChannelMax:      int(blocks.DarkChannelMax),
			EdgeDelta:           blocks.EdgeDelta,
			HighVariance:        blocks.HighVariance,
			ExtremeVariance:     blocks.ExtremeVariance,
			HighDarkRatio:       blocks.HighDarkRatio,
			ExtremeDarkRatio:    blocks.ExtremeDarkRatio,
			HighEdgeRatio:       blocks.HighEdgeRatio,
			FilenameMatching:    true,
			FilenameBoost:       heur.FilenameBoost,
			BoostCap:            heur.BoostCap,
			MaxRegionConfidence: heur.MaxRegionConfidence,
		},
		Remote: RemoteConfig{
			Endpoint:               rc.Endpoint,
			Confidence:             rc.Confidence,
			Overlap:                rc.Overlap,
			TimeoutSec:             int(rc.Timeout / time.Second),
			RetryAlternateEncoding: rc.RetryAlternateEncoding,
			CacheTTLSec:            int(rc.CacheTTL / time.Second),
		},
		Output: OutputConfig{
			Format:            "text",
			OverlayColor:      "#FF0000",
			OverlayOtherColor: "#FFFF00",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     imageio.MaxUploadBytes >> 20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 30,
				RequestsPerHour:   600,
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath(),
		},
		Batch: BatchConfig{
			Workers:   4,
			Recursive: false,
			FailFast:  false,
		},
	}
}

// DefaultHistoryPath returns the history database location under the
// user's data directory.
func DefaultHistoryPath() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "canescan", "history.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "canescan", "history.db")
	}
	return "canescan-history.db"
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !contains(ValidOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(ValidOutputFormats, ", "))
	}

	a := c.Analysis
	if a.BlockSize <= 0 {
		return fmt.Errorf("invalid analysis block size: %d (must be positive)", a.BlockSize)
	}
	if a.MaxCandidates < 0 {
		return fmt.Errorf("invalid analysis max candidates: %d (must not be negative)", a.MaxCandidates)
	}
	if maxScore := analysis.DefaultBlockConfig().Weights.Total(); a.SuspicionThreshold < 0 || a.SuspicionThreshold >= maxScore {
		return fmt.Errorf("invalid analysis suspicion threshold: %.1f (must be at least 0 and below %.0f)", a.SuspicionThreshold, maxScore)
	}
	if a.DarkChannelMax < 0 || a.DarkChannelMax > 255 {
		return fmt.Errorf("invalid analysis dark channel max: %d (must be between 0 and 255)", a.DarkChannelMax)
	}
	if a.EdgeDelta < 0 || a.HighVariance < 0 || a.ExtremeVariance < 0 {
		return fmt.Errorf("invalid analysis thresholds: edge delta and variances must not be negative")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"analysis.high_dark_ratio", a.HighDarkRatio},
		{"analysis.extreme_dark_ratio", a.ExtremeDarkRatio},
		{"analysis.high_edge_ratio", a.HighEdgeRatio},
		{"analysis.filename_boost", a.FilenameBoost},
		{"analysis.boost_cap", a.BoostCap},
		{"analysis.max_region_confidence", a.MaxRegionConfidence},
		{"remote.confidence", c.Remote.Confidence},
		{"remote.overlap", c.Remote.Overlap},
	} {
		if err := validateThreshold(f.value, f.name); err != nil {
			return err
		}
	}

	if c.Remote.TimeoutSec <= 0 {
		return fmt.Errorf("invalid remote timeout: %d (must be positive)", c.Remote.TimeoutSec)
	}
	if c.Remote.CacheTTLSec < 0 {
		return fmt.Errorf("invalid remote cache ttl: %d (must not be negative)", c.Remote.CacheTTLSec)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return fmt.Errorf("invalid rate limits: values must not be negative")
	}

	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("invalid history path: must be set when history is enabled")
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToPipelineConfig converts the config to the analyzer configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Blocks = c.toBlockConfig()
	cfg.Heuristics.FilenameBoost = c.Analysis.FilenameBoost
	cfg.Heuristics.BoostCap = c.Analysis.BoostCap
	cfg.Heuristics.MaxRegionConfidence = c.Analysis.MaxRegionConfidence
	cfg.MatchFilename = c.Analysis.FilenameMatching
	cfg.Remote = c.toRemoteConfig()
	return cfg
}

// toBlockConfig converts to analysis.BlockConfig.
func (c *Config) toBlockConfig() analysis.BlockConfig {
	cfg := analysis.DefaultBlockConfig()
	a := c.Analysis
	cfg.BlockSize = a.BlockSize
	cfg.MaxCandidates = a.MaxCandidates
	cfg.Threshold = a.SuspicionThreshold
	cfg.DarkChannelMax = uint8(a.DarkChannelMax) //nolint:gosec // G115: range checked in Validate
	cfg.EdgeDelta = a.EdgeDelta
	cfg.HighVariance = a.HighVariance
	cfg.ExtremeVariance = a.ExtremeVariance
	cfg.HighDarkRatio = a.HighDarkRatio
	cfg.ExtremeDarkRatio = a.ExtremeDarkRatio
	cfg.HighEdgeRatio = a.HighEdgeRatio
	return cfg
}

// toRemoteConfig converts to remote.Config.
func (c *Config) toRemoteConfig() remote.Config {
	return remote.Config{
		Endpoint:               c.Remote.Endpoint,
		APIKey:                 c.Remote.APIKey,
		Confidence:             c.Remote.Confidence,
		Overlap:                c.Remote.Overlap,
		Timeout:                time.Duration(c.Remote.TimeoutSec) * time.Second,
		RetryAlternateEncoding: c.Remote.RetryAlternateEncoding,
		CacheTTL:               time.Duration(c.Remote.CacheTTLSec) * time.Second,
	}
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Remote.APIKey != "" {
		c.Remote.APIKey = "********"
	}
	return c
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
