package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/canescan/internal/pipeline"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second

	// JSON envelope around the base64 image field.
	wsEnvelopeBytes = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketAnalyzeRequest is a client message on /ws. Image holds the raw
// bytes, base64 encoded on the wire.
type WebSocketAnalyzeRequest struct {
	Type     string `json:"type"`
	Image    []byte `json:"image,omitempty"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Save     *bool  `json:"save,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketAnalyzeResponse is a server message on /ws.
type WebSocketAnalyzeResponse struct {
	Type      string                   `json:"type"`
	Status    string                   `json:"status"` // "processing", "completed", "error"
	Result    *pipeline.AnalysisResult `json:"result,omitempty"`
	HistoryID string                   `json:"history_id,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ErrorType string                   `json:"error_type,omitempty"`
	RequestID string                   `json:"request_id,omitempty"`
}

// analyzeWebSocketHandler upgrades the connection and serves analyze
// requests until the client goes away.
func (s *Server) analyzeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads messages until the connection fails.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.wsReadLimit())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket closed unexpectedly", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// wsReadLimit is the largest frame that can still carry a base64 image
// of maxUploadBytes. Larger frames close the connection before buffering.
func (s *Server) wsReadLimit() int64 {
	return s.maxUploadBytes*4/3 + wsEnvelopeBytes
}

// handleWebSocketMessage answers one request with a processing message
// followed by either a completed or an error message.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketAnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.Type != "analyze" {
		s.sendWebSocketError(conn, "", "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "", "invalid_request", "No image data provided")
		return
	}
	if int64(len(req.Image)) > s.maxUploadBytes {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Image exceeds %d bytes", s.maxUploadBytes))
		return
	}
	if s.analyzer == nil {
		s.sendWebSocketError(conn, "", "unavailable", "Analyzer not available")
		return
	}

	requestID := uuid.NewString()
	s.sendWebSocketResponse(conn, WebSocketAnalyzeResponse{
		Type:      "analysis",
		Status:    "processing",
		RequestID: requestID,
	})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	uploadSizeBytes.Observe(float64(len(req.Image)))
	start := time.Now()
	res, err := s.analyzer.Analyze(ctx, req.Image, req.Filename, req.MimeType)
	if err != nil {
		analysisRequestsTotal.WithLabelValues("websocket", "error").Inc()
		errType := "processing_error"
		if pipeline.IsDecodeError(err) {
			errType = "decode_error"
		}
		s.sendWebSocketError(conn, requestID, errType, err.Error())
		return
	}
	observeAnalysis("websocket", time.Since(start).Seconds(), res.PestID, string(res.Source), res.Confidence)

	historyID := ""
	if s.history != nil && (req.Save == nil || *req.Save) {
		historyID = s.saveToHistory(ctx, req.Filename, res)
	}

	s.sendWebSocketResponse(conn, WebSocketAnalyzeResponse{
		Type:      "analysis",
		Status:    "completed",
		Result:    res,
		HistoryID: historyID,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketAnalyzeResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketAnalyzeResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
