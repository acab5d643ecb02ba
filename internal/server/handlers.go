package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
)

const (
	formatJSON    = "json"
	formatText    = "text"
	formatOverlay = "overlay"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:         "healthy",
		Version:        s.version,
		Time:           time.Now().UTC().Format(time.RFC3339),
		RemoteEnabled:  s.analyzer != nil && s.analyzer.RemoteEnabled(),
		HistoryEnabled: s.history != nil,
	}
	writeJSON(w, http.StatusOK, response)
}

// pestsHandler lists the knowledge base.
func (s *Server) pestsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pests := knowledge.Pests()
	writeJSON(w, http.StatusOK, PestsResponse{Pests: pests, Count: len(pests)})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, AnalysisResponse{Success: false, Error: message})
}
