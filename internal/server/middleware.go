package server

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// corsMiddleware sets the CORS headers, answers preflight requests and
// records request metrics.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.corsOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(sr, r)

		route := routeLabel(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sr.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
}

// routeLabel collapses history ids so the metric label set stays bounded.
func routeLabel(path string) string {
	rest, ok := strings.CutPrefix(path, historyPrefix)
	if !ok || rest == "" {
		return path
	}
	if strings.HasSuffix(rest, "/report") {
		return historyPrefix + "{id}/report"
	}
	return historyPrefix + "{id}"
}

// rateLimitMiddleware rejects requests over the client's limits. Upload
// size counts against the daily data quota.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next(w, r)
			return
		}

		size := max(r.ContentLength, 0)
		if err := s.rateLimiter.CheckRateLimit(getClientIP(r), size); err != nil {
			rateLimitHits.WithLabelValues(limitType(err)).Inc()
			s.handleRateLimitError(w, err)
			return
		}
		next(w, r)
	}
}

// LimitResponse is the body of a 429 answer.
type LimitResponse struct {
	Success    bool    `json:"success"`
	Error      string  `json:"error"`
	Type       string  `json:"type"`
	Limit      int64   `json:"limit"`
	Used       int64   `json:"used,omitempty"`
	RetryAfter float64 `json:"retry_after,omitempty"`
	Resets     string  `json:"resets,omitempty"`
	Message    string  `json:"message"`
}

// handleRateLimitError writes the 429 answer for a rate limit or quota
// error and a 500 for anything else.
func (s *Server) handleRateLimitError(w http.ResponseWriter, err error) {
	var (
		rle *RateLimitError
		qe  *QuotaExceededError
	)
	h := w.Header()
	switch {
	case errors.As(err, &rle):
		h.Set("X-RateLimit-Type", rle.Type)
		h.Set("X-RateLimit-Limit", strconv.Itoa(rle.Limit))
		h.Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Round(time.Second).Seconds())))
		writeJSON(w, http.StatusTooManyRequests, LimitResponse{
			Error:      "rate_limit_exceeded",
			Type:       rle.Type,
			Limit:      int64(rle.Limit),
			RetryAfter: rle.RetryAfter.Seconds(),
			Message:    rle.Error(),
		})
	case errors.As(err, &qe):
		h.Set("X-Quota-Type", qe.Type)
		h.Set("X-Quota-Limit", strconv.FormatInt(qe.Limit, 10))
		h.Set("X-Quota-Used", strconv.FormatInt(qe.Used, 10))
		h.Set("X-Quota-Resets", qe.Resets.UTC().Format(http.TimeFormat))
		writeJSON(w, http.StatusTooManyRequests, LimitResponse{
			Error:   "quota_exceeded",
			Type:    qe.Type,
			Limit:   qe.Limit,
			Used:    qe.Used,
			Resets:  qe.Resets.UTC().Format(time.RFC3339),
			Message: qe.Error(),
		})
	default:
		s.writeErrorResponse(w, "Rate limiting check failed", http.StatusInternalServerError)
	}
}

// limitType names the limit behind a rate limit or quota error.
func limitType(err error) string {
	var (
		rle *RateLimitError
		qe  *QuotaExceededError
	)
	switch {
	case errors.As(err, &rle):
		return rle.Type
	case errors.As(err, &qe):
		return qe.Type
	default:
		return "unknown"
	}
}

// getClientIP identifies the client: first X-Forwarded-For hop, then
// X-Real-IP, then the connection address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
