package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/canescan/internal/history"
)

const (
	defaultHistoryLimit = 50
	historyPrefix       = "/history/"
)

// historyListHandler returns the most recent analyses, newest first.
func (s *Server) historyListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		s.writeErrorResponse(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErrorResponse(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list history", "error", err)
		s.writeErrorResponse(w, "Failed to list history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, HistoryListResponse{Entries: entries, Count: len(entries)})
}

// historyEntryHandler serves /history/{id} and /history/{id}/report.
func (s *Server) historyEntryHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorResponse(w, "History is disabled", http.StatusNotFound)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, historyPrefix), "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" || (sub != "" && sub != "report") {
		s.writeErrorResponse(w, "Not found", http.StatusNotFound)
		return
	}

	switch {
	case sub == "report" && r.Method == http.MethodGet:
		s.historyReport(w, r, id)
	case sub == "" && r.Method == http.MethodGet:
		s.historyGet(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		s.historyDelete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) historyGet(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := s.history.Get(r.Context(), id)
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) historyDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.history.Delete(r.Context(), id); err != nil {
		s.writeHistoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) historyReport(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := s.history.Get(r.Context(), id)
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", history.ReportFilename(entry)))
	_, _ = io.WriteString(w, history.RenderReport(entry))
}

func (s *Server) writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		s.writeErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	slog.Error("History lookup failed", "error", err)
	s.writeErrorResponse(w, "History lookup failed", http.StatusInternalServerError)
}
