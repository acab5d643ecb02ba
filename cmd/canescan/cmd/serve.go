package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MeKo-Tech/canescan/internal/config"
	"github.com/MeKo-Tech/canescan/internal/server"
	"github.com/MeKo-Tech/canescan/internal/version"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket API",
		Long: `Start an HTTP server exposing the analyzer.

Endpoints:
  GET    /health              Health check
  GET    /pests               Knowledge base
  POST   /analyze             Analyze an uploaded image (multipart field "image")
  GET    /history             Saved analyses, newest first
  GET    /history/{id}        One saved analysis
  DELETE /history/{id}        Delete a saved analysis
  GET    /history/{id}/report Plain-text report
  GET    /ws                  WebSocket analysis
  GET    /metrics             Prometheus metrics

Examples:
  canescan serve
  canescan serve --host 0.0.0.0 --port 3000
  canescan serve --rate-limit --requests-per-minute 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd)
		},
	}

	d := config.DefaultConfig()
	f := cmd.Flags()
	f.StringP("host", "H", d.Server.Host, "server host")
	f.IntP("port", "p", d.Server.Port, "server port")
	f.String("cors-origin", d.Server.CORSOrigin, "CORS allowed origin")
	f.Int("max-upload-mb", d.Server.MaxUploadMB, "maximum upload size in MB")
	f.Int("timeout", d.Server.TimeoutSec, "request timeout in seconds")
	f.Int("shutdown-timeout", d.Server.ShutdownTimeout, "shutdown timeout in seconds")
	f.Bool("overlay-enable", d.Server.OverlayEnabled, "allow format=overlay responses")
	f.Bool("history", d.History.Enabled, "save analyses and serve the /history endpoints")
	f.Bool("rate-limit", d.Server.RateLimit.Enabled, "enable per-client rate limiting")
	f.Int("requests-per-minute", d.Server.RateLimit.RequestsPerMinute, "maximum requests per minute per client")
	f.Int("requests-per-hour", d.Server.RateLimit.RequestsPerHour, "maximum requests per hour per client")
	f.Int("max-requests-per-day", d.Server.RateLimit.MaxRequestsPerDay, "maximum requests per day per client")
	f.Int("max-data-per-day-mb", d.Server.RateLimit.MaxDataPerDayMB, "maximum upload volume per day per client in MB")

	a.bind(cmd, mergeBindings(addAnalysisFlags(f), map[string]string{
		"host":                 "server.host",
		"port":                 "server.port",
		"cors-origin":          "server.cors_origin",
		"max-upload-mb":        "server.max_upload_mb",
		"timeout":              "server.timeout_sec",
		"shutdown-timeout":     "server.shutdown_timeout",
		"overlay-enable":       "server.overlay_enabled",
		"history":              "history.enabled",
		"rate-limit":           "server.rate_limit.enabled",
		"requests-per-minute":  "server.rate_limit.requests_per_minute",
		"requests-per-hour":    "server.rate_limit.requests_per_hour",
		"max-requests-per-day": "server.rate_limit.max_requests_per_day",
		"max-data-per-day-mb":  "server.rate_limit.max_data_per_day_mb",
	}))
	return cmd
}

// serverConfig maps the resolved configuration onto the server.
func (a *app) serverConfig() server.Config {
	sc := a.cfg.Server
	cfg := server.Config{
		Host:              sc.Host,
		Port:              sc.Port,
		CORSOrigin:        sc.CORSOrigin,
		MaxUploadMB:       int64(sc.MaxUploadMB),
		TimeoutSec:        sc.TimeoutSec,
		PipelineConfig:    a.cfg.ToPipelineConfig(),
		OverlayEnabled:    sc.OverlayEnabled,
		OverlayColor:      a.cfg.Output.OverlayColor,
		OverlayOtherColor: a.cfg.Output.OverlayOtherColor,
		Version:           version.Version,
	}
	if rl := sc.RateLimit; rl.Enabled {
		cfg.RateLimit = &server.RateLimitConfig{
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) << 20,
		}
	}
	return cfg
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.serverConfig()

	if a.cfg.History.Enabled {
		store, err := a.openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		cfg.History = store
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting canescan server",
			"addr", httpServer.Addr,
			"history", cfg.History != nil,
			"rate_limit", cfg.RateLimit != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownTimeout := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
