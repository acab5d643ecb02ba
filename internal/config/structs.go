//nolint:lll
package config

// Config represents the complete configuration for canescan. It covers every
// command (analyze, batch, history, serve) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Local analyzers and detection combination
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`

	// Hosted object-detection service
	Remote RemoteConfig `mapstructure:"remote" yaml:"remote" json:"remote"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Analysis history store
	History HistoryConfig `mapstructure:"history" yaml:"history" json:"history"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// AnalysisConfig contains block scorer thresholds and combination settings.
type AnalysisConfig struct {
	BlockSize          int     `mapstructure:"block_size" yaml:"block_size" json:"block_size"`
	MaxCandidates      int     `mapstructure:"max_candidates" yaml:"max_candidates" json:"max_candidates"`
	SuspicionThreshold float64 `mapstructure:"suspicion_threshold" yaml:"suspicion_threshold" json:"suspicion_threshold"`
	DarkChannelMax     int     `mapstructure:"dark_channel_max" yaml:"dark_channel_max" json:"dark_channel_max"`
	EdgeDelta          float64 `mapstructure:"edge_delta" yaml:"edge_delta" json:"edge_delta"`
	HighVariance       float64 `mapstructure:"high_variance" yaml:"high_variance" json:"high_variance"`
	ExtremeVariance    float64 `mapstructure:"extreme_variance" yaml:"extreme_variance" json:"extreme_variance"`
	HighDarkRatio      float64 `mapstructure:"high_dark_ratio" yaml:"high_dark_ratio" json:"high_dark_ratio"`
	ExtremeDarkRatio   float64 `mapstructure:"extreme_dark_ratio" yaml:"extreme_dark_ratio" json:"extreme_dark_ratio"`
	HighEdgeRatio      float64 `mapstructure:"high_edge_ratio" yaml:"high_edge_ratio" json:"high_edge_ratio"`

	FilenameMatching    bool    `mapstructure:"filename_matching" yaml:"filename_matching" json:"filename_matching"`
	FilenameBoost       float64 `mapstructure:"filename_boost" yaml:"filename_boost" json:"filename_boost"`
	BoostCap            float64 `mapstructure:"boost_cap" yaml:"boost_cap" json:"boost_cap"`
	MaxRegionConfidence float64 `mapstructure:"max_region_confidence" yaml:"max_region_confidence" json:"max_region_confidence"`
}

// RemoteConfig contains the hosted classifier settings. The classifier is
// used only when an API key is set.
type RemoteConfig struct {
	Endpoint               string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey                 string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	Confidence             float64 `mapstructure:"confidence" yaml:"confidence" json:"confidence"`
	Overlap                float64 `mapstructure:"overlap" yaml:"overlap" json:"overlap"`
	TimeoutSec             int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	RetryAlternateEncoding bool    `mapstructure:"retry_alternate_encoding" yaml:"retry_alternate_encoding" json:"retry_alternate_encoding"`
	CacheTTLSec            int     `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec" json:"cache_ttl_sec"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format            string `mapstructure:"format" yaml:"format" json:"format"`
	File              string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir        string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayColor      string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
	OverlayOtherColor string `mapstructure:"overlay_other_color" yaml:"overlay_other_color" json:"overlay_other_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool            `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// HistoryConfig contains the local history store settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	FailFast  bool     `mapstructure:"fail_fast" yaml:"fail_fast" json:"fail_fast"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}
