package server

import (
	"context"
	"net/http"
	"time"

	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// analyzerInterface is the part of *pipeline.Analyzer the server needs.
type analyzerInterface interface {
	Analyze(ctx context.Context, data []byte, filename, mimeType string) (*pipeline.AnalysisResult, error)
	RemoteEnabled() bool
}

// HistoryStore is the part of *history.Store the server needs.
type HistoryStore interface {
	Append(ctx context.Context, filename string, res *pipeline.AnalysisResult) (*history.Entry, error)
	List(ctx context.Context, limit int) ([]*history.Entry, error)
	Get(ctx context.Context, id string) (*history.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	analyzer          analyzerInterface
	history           HistoryStore
	rateLimiter       *RateLimiter
	corsOrigin        string
	maxUploadBytes    int64
	timeout           time.Duration
	overlayEnabled    bool
	overlayColor      string
	overlayOtherColor string
	version           string
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Config holds server configuration.
type Config struct {
	Host              string
	Port              int
	CORSOrigin        string
	MaxUploadMB       int64
	TimeoutSec        int
	PipelineConfig    pipeline.Config
	OverlayEnabled    bool
	OverlayColor      string
	OverlayOtherColor string
	Version           string

	// History is optional; nil disables saving and the /history routes.
	History HistoryStore
	// RateLimit is optional; nil disables rate limiting.
	RateLimit *RateLimitConfig
}

// Response types for API endpoints.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	Time           string `json:"time"`
	RemoteEnabled  bool   `json:"remote_enabled"`
	HistoryEnabled bool   `json:"history_enabled"`
}

type PestsResponse struct {
	Pests []knowledge.PestRecord `json:"pests"`
	Count int                    `json:"count"`
}

type AnalysisResponse struct {
	Success   bool                     `json:"success"`
	Result    *pipeline.AnalysisResult `json:"result,omitempty"`
	HistoryID string                   `json:"history_id,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

type HistoryListResponse struct {
	Entries []*history.Entry `json:"entries"`
	Count   int              `json:"count"`
}

// NewServer builds the analyzer from config.PipelineConfig and creates the
// server.
func NewServer(config Config) (*Server, error) {
	an, err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, err
	}
	return newServer(config, an), nil
}

func newServer(config Config, an analyzerInterface) *Server {
	s := &Server{
		analyzer:          an,
		history:           config.History,
		corsOrigin:        config.CORSOrigin,
		maxUploadBytes:    config.MaxUploadMB << 20,
		timeout:           time.Duration(config.TimeoutSec) * time.Second,
		overlayEnabled:    config.OverlayEnabled,
		overlayColor:      config.OverlayColor,
		overlayOtherColor: config.OverlayOtherColor,
		version:           config.Version,
	}
	if rl := config.RateLimit; rl != nil {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/pests", s.corsMiddleware(s.pestsHandler))
	mux.HandleFunc("/analyze", s.corsMiddleware(s.rateLimitMiddleware(s.analyzeHandler)))
	mux.HandleFunc("/history", s.corsMiddleware(s.historyListHandler))
	mux.HandleFunc(historyPrefix, s.corsMiddleware(s.historyEntryHandler))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.analyzeWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
