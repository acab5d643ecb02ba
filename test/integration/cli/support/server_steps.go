package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/canescan/internal/config"
	"github.com/MeKo-Tech/canescan/internal/history"
	"github.com/MeKo-Tech/canescan/internal/server"
	"github.com/cucumber/godog"
)

type serverOption func(*server.Config)

// startServer runs the API on an httptest listener with a history
// database inside the scenario workspace.
func (testCtx *TestContext) startServer(opts ...serverOption) error {
	testCtx.StopServer()

	store, err := history.Open(filepath.Join(testCtx.TempDir, "server-history.db"))
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	d := config.DefaultConfig()
	cfg := server.Config{
		CORSOrigin:        d.Server.CORSOrigin,
		MaxUploadMB:       int64(d.Server.MaxUploadMB),
		TimeoutSec:        d.Server.TimeoutSec,
		PipelineConfig:    d.ToPipelineConfig(),
		OverlayColor:      d.Output.OverlayColor,
		OverlayOtherColor: d.Output.OverlayOtherColor,
		Version:           "integration",
		History:           store,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	testCtx.History = store
	testCtx.Server = httptest.NewServer(mux)
	return nil
}

// StopServer shuts the test server down if one is running.
func (testCtx *TestContext) StopServer() {
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
	if testCtx.History != nil {
		_ = testCtx.History.Close()
		testCtx.History = nil
	}
}

func (testCtx *TestContext) theAnalysisServerIsRunning() error {
	return testCtx.startServer()
}

func (testCtx *TestContext) theAnalysisServerIsRunningWithOverlays() error {
	return testCtx.startServer(func(c *server.Config) { c.OverlayEnabled = true })
}

func (testCtx *TestContext) theAnalysisServerIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startServer(func(c *server.Config) {
		c.RateLimit = &server.RateLimitConfig{RequestsPerMinute: perMinute}
	})
}

func (testCtx *TestContext) do(req *http.Request) error {
	if testCtx.Server == nil {
		return fmt.Errorf("server is not running")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for name := range resp.Header {
		testCtx.LastHTTPHeaders[name] = resp.Header.Get(name)
	}
	return nil
}

// url expands {id} to the history id of the last upload.
func (testCtx *TestContext) url(path string) (string, error) {
	if testCtx.Server == nil {
		return "", fmt.Errorf("server is not running")
	}
	if strings.Contains(path, "{id}") {
		if testCtx.lastHistoryID == "" {
			return "", fmt.Errorf("no analysis has been saved yet")
		}
		path = strings.ReplaceAll(path, "{id}", testCtx.lastHistoryID)
	}
	return testCtx.Server.URL + path, nil
}

func (testCtx *TestContext) iSendRequest(method, path string) error {
	u, err := testCtx.url(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadTo(name, path string) error {
	u, err := testCtx.url(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, u, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := testCtx.do(req); err != nil {
		return err
	}

	var resp struct {
		HistoryID string `json:"history_id"`
	}
	if json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp) == nil && resp.HistoryID != "" {
		testCtx.lastHistoryID = resp.HistoryID
	}
	return nil
}

func (testCtx *TestContext) iUploadTimes(name, path string, n int) error {
	for i := 0; i < n; i++ {
		if err := testCtx.iUploadTo(name, path); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, field, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if got != expected {
		return fmt.Errorf("expected header %s to be %q, got %q", name, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldContain(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if !strings.Contains(got, expected) {
		return fmt.Errorf("expected header %s to contain %q, got %q", name, expected, got)
	}
	return nil
}

// RegisterServerSteps registers HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the analysis server is running$`, testCtx.theAnalysisServerIsRunning)
	sc.Step(`^the analysis server is running with overlays enabled$`, testCtx.theAnalysisServerIsRunningWithOverlays)
	sc.Step(`^the analysis server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theAnalysisServerIsRunningWithRateLimit)
	sc.Step(`^I send a (GET|DELETE|POST|PUT) request to "([^"]*)"$`, testCtx.iSendRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iUploadTimes)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, testCtx.theResponseHeaderShouldContain)
}
