package server

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/MeKo-Tech/canescan/internal/imageio"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
)

// analyzeRequest holds the form options of a POST /analyze.
type analyzeRequest struct {
	data     []byte
	filename string
	mimeType string
	format   string
	save     bool
}

// analyzeHandler handles a multipart image upload and returns the analysis.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.analyzer == nil {
		s.writeErrorResponse(w, "Analyzer not available", http.StatusServiceUnavailable)
		return
	}

	req, status, err := s.parseAnalyzeRequest(w, r)
	if err != nil {
		analysisRequestsTotal.WithLabelValues("http", "rejected").Inc()
		s.writeErrorResponse(w, err.Error(), status)
		return
	}
	if req.format == formatOverlay && !s.overlayEnabled {
		s.writeErrorResponse(w, "Overlay output is disabled", http.StatusForbidden)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.analyzer.Analyze(ctx, req.data, req.filename, req.mimeType)
	if err != nil {
		analysisRequestsTotal.WithLabelValues("http", "error").Inc()
		if pipeline.IsDecodeError(err) {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Analysis failed", "filename", req.filename, "error", err)
		s.writeErrorResponse(w, "Analysis failed", http.StatusInternalServerError)
		return
	}
	observeAnalysis("http", time.Since(start).Seconds(), res.PestID, string(res.Source), res.Confidence)

	historyID := ""
	if req.save {
		historyID = s.saveToHistory(ctx, req.filename, res)
	}

	switch req.format {
	case formatText:
		s.writeTextResult(w, res)
	case formatOverlay:
		s.writeOverlay(w, req, res)
	default:
		writeJSON(w, http.StatusOK, AnalysisResponse{Success: true, Result: res, HistoryID: historyID})
	}
}

// parseAnalyzeRequest reads the upload and options, returning the HTTP
// status to use on failure.
func (s *Server) parseAnalyzeRequest(w http.ResponseWriter, r *http.Request) (*analyzeRequest, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUploadBytes)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to parse form: %w", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("no image file provided")
	}
	defer func() {
		_ = file.Close()
	}()

	if header.Size > s.maxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUploadBytes)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read image: %w", err)
	}
	uploadSizeBytes.Observe(float64(len(data)))

	req := &analyzeRequest{
		data:     data,
		filename: header.Filename,
		mimeType: uploadMimeType(header.Header.Get("Content-Type")),
		format:   r.FormValue("format"),
		save:     s.history != nil && r.FormValue("save") != "0" && r.FormValue("save") != "false",
	}
	switch req.format {
	case "", formatJSON:
		req.format = formatJSON
	case formatText, formatOverlay:
	default:
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported format: %s", req.format)
	}
	return req, http.StatusOK, nil
}

// uploadMimeType drops generic part types so the decoder sniffs the content.
func uploadMimeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "application/octet-stream" {
		return ""
	}
	return mt
}

// saveToHistory appends res and returns the new entry id. Failures are
// logged and do not fail the request.
func (s *Server) saveToHistory(ctx context.Context, filename string, res *pipeline.AnalysisResult) string {
	entry, err := s.history.Append(context.WithoutCancel(ctx), filename, res)
	if err != nil {
		slog.Warn("Failed to save analysis to history", "filename", filename, "error", err)
		return ""
	}
	return entry.ID
}

func (s *Server) writeTextResult(w http.ResponseWriter, res *pipeline.AnalysisResult) {
	text, err := pipeline.ToPlainText(res)
	if err != nil {
		s.writeErrorResponse(w, "Failed to format result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (s *Server) writeOverlay(w http.ResponseWriter, req *analyzeRequest, res *pipeline.AnalysisResult) {
	buf, err := imageio.Decode(req.data, req.mimeType)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	ov := pipeline.RenderOverlay(buf.ToImage(), res,
		pipeline.ParseHexColor(s.overlayColor), pipeline.ParseHexColor(s.overlayOtherColor))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Pest-ID", res.PestID)
	w.Header().Set("X-Confidence", fmt.Sprintf("%.3f", res.Confidence))
	if err := png.Encode(w, ov); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}
