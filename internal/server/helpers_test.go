package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/pipeline"
	"github.com/MeKo-Tech/canescan/internal/testutil"
	"github.com/stretchr/testify/require"
)

// mockAnalyzer returns a fixed result or error and counts calls.
type mockAnalyzer struct {
	result *pipeline.AnalysisResult
	err    error
	remote bool
	calls  int
	gotCtx context.Context
}

func (m *mockAnalyzer) Analyze(ctx context.Context, _ []byte, filename, _ string) (*pipeline.AnalysisResult, error) {
	m.calls++
	m.gotCtx = ctx
	if m.err != nil {
		return nil, m.err
	}
	res := *m.result
	res.Filename = filename
	return &res, nil
}

func (m *mockAnalyzer) RemoteEnabled() bool { return m.remote }

// failingHistory fails every call.
type failingHistory struct{}

var errHistoryDown = errors.New("history down")

func (failingHistory) Append(context.Context, string, *pipeline.AnalysisResult) (*history.Entry, error) {
	return nil, errHistoryDown
}

func (failingHistory) List(context.Context, int) ([]*history.Entry, error) {
	return nil, errHistoryDown
}

func (failingHistory) Get(context.Context, string) (*history.Entry, error) {
	return nil, errHistoryDown
}

func (failingHistory) Delete(context.Context, string) error { return errHistoryDown }

func testConfig() Config {
	return Config{
		CORSOrigin:        "*",
		MaxUploadMB:       1,
		TimeoutSec:        5,
		PipelineConfig:    pipeline.DefaultConfig(),
		OverlayEnabled:    true,
		OverlayColor:      "#FF0000",
		OverlayOtherColor: "#FFFF00",
		Version:           "test",
	}
}

// newTestServer builds a server around the real analyzer and an in-memory
// history store.
func newTestServer(t *testing.T) (*Server, *history.Store) {
	t.Helper()
	store, err := history.Open(history.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := testConfig()
	cfg.History = store
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s, store
}

func newTestMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func grayPNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.Uniform(80, 60, testutil.MidGray))
}

// createMultipartFormRequest builds a POST /analyze request with the image
// attached under "image" and the given extra form fields.
func createMultipartFormRequest(t *testing.T, imageData []byte, filename, contentType string, extraFields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if imageData != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}
	for k, v := range extraFields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
