package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.False(t, resp.RemoteEnabled)
	assert.True(t, resp.HistoryEnabled)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthHandler_ReportsRemoteAndNoHistory(t *testing.T) {
	s := newServer(testConfig(), &mockAnalyzer{remote: true})

	rec := httptest.NewRecorder()
	s.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.RemoteEnabled)
	assert.False(t, resp.HistoryEnabled)
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	mux := newTestMux(s)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/health"},
		{http.MethodDelete, "/pests"},
		{http.MethodGet, "/analyze"},
		{http.MethodPost, "/history"},
		{http.MethodPost, "/history/abc"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestPestsHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.pestsHandler(rec, httptest.NewRequest(http.MethodGet, "/pests", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PestsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, len(knowledge.Pests()), resp.Count)
	assert.Len(t, resp.Pests, resp.Count)

	ids := make([]string, 0, len(resp.Pests))
	for _, p := range resp.Pests {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "broca-da-cana")
	assert.Contains(t, ids, "migdolus")
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	mux := newTestMux(s)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/analyze", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	mux := newTestMux(s)

	// Generate at least one request metric.
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "canescan_http_requests_total"))
}

func TestWriteErrorResponse(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	s.writeErrorResponse(rec, "boom", http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, rec.Body.String())
}
