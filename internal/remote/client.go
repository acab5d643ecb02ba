// Package remote talks to the hosted object-detection service that can
// recognise sugarcane pests in an uploaded photo.
package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultEndpoint is the hosted sugarcane pest detection model.
const DefaultEndpoint = "https://detect.roboflow.com/sugarcane-pests-detection/1"

const (
	encodingBase64    = "base64-form"
	encodingMultipart = "multipart"
	maxErrorBody      = 256
)

// Config holds the remote classifier settings.
type Config struct {
	Endpoint               string
	APIKey                 string
	Confidence             float64
	Overlap                float64
	Timeout                time.Duration
	RetryAlternateEncoding bool
	CacheTTL               time.Duration
}

// DefaultConfig returns settings for the hosted endpoint. No API key is set,
// so the classifier stays disabled until one is provided.
func DefaultConfig() Config {
	return Config{
		Endpoint:               DefaultEndpoint,
		Confidence:             0.5,
		Overlap:                0.5,
		Timeout:                15 * time.Second,
		RetryAlternateEncoding: true,
		CacheTTL:               10 * time.Minute,
	}
}

// Enabled reports whether both an endpoint and an API key are configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.APIKey) != ""
}

// Prediction is one object reported by the service. X and Y are the centre
// of the box in source-image pixels.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

type response struct {
	Predictions *[]Prediction `json:"predictions"`
}

// Client calls the remote detection service. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger
}

// NewClient creates a client. Zero timeout and cache TTL fall back to the defaults.
func NewClient(config Config) *Client {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = def.CacheTTL
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		logger:     slog.Default().With("component", "remote"),
	}
}

// Enabled reports whether Classify will contact the service.
func (c *Client) Enabled() bool {
	return c != nil && c.config.Enabled()
}

// Classify sends the image to the service and returns its predictions.
// Every failure is logged and yields an empty result.
func (c *Client) Classify(ctx context.Context, data []byte) []Prediction {
	if !c.Enabled() || len(data) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		c.logger.Debug("remote classifier skipped", "error", err)
		return nil
	}

	key := cacheKey(data)
	if cached, found := c.cache.Get(key); found {
		if preds, ok := cached.([]Prediction); ok {
			c.logger.Debug("remote classifier cache hit", "predictions", len(preds))
			return clonePredictions(preds)
		}
	}

	preds, err := c.classify(ctx, data)
	if err != nil {
		c.logger.Warn("remote classifier failed, continuing with local analysis", "error", err)
		return nil
	}
	c.cache.SetDefault(key, clonePredictions(preds))
	return preds
}

// classify tries the base64 form encoding, then optionally multipart.
func (c *Client) classify(ctx context.Context, data []byte) ([]Prediction, error) {
	preds, err := c.post(ctx, encodingBase64, data)
	if err == nil {
		return preds, nil
	}
	if !c.config.RetryAlternateEncoding || ctx.Err() != nil {
		return nil, err
	}

	c.logger.Debug("retrying remote classifier with alternate encoding", "error", err)
	preds, retryErr := c.post(ctx, encodingMultipart, data)
	if retryErr != nil {
		return nil, errors.Join(err, retryErr)
	}
	return preds, nil
}

func (c *Client) post(ctx context.Context, encoding string, data []byte) ([]Prediction, error) {
	body, contentType, err := encodeBody(encoding, data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), body)
	if err != nil {
		return nil, fmt.Errorf("build remote request for %s: %w", redactEndpoint(c.config.Endpoint), stripURL(err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newNetworkError(encoding, c.config.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(encoding, c.config.Endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{Encoding: encoding, StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &MalformedResponseError{Encoding: encoding, Err: err}
	}
	if parsed.Predictions == nil {
		return nil, &MalformedResponseError{Encoding: encoding, Err: errors.New("missing predictions array")}
	}
	return *parsed.Predictions, nil
}

func (c *Client) requestURL() string {
	q := url.Values{}
	q.Set("api_key", c.config.APIKey)
	q.Set("confidence", percent(c.config.Confidence))
	q.Set("overlap", percent(c.config.Overlap))

	sep := "?"
	if strings.Contains(c.config.Endpoint, "?") {
		sep = "&"
	}
	return c.config.Endpoint + sep + q.Encode()
}

func encodeBody(encoding string, data []byte) (io.Reader, string, error) {
	if encoding == encodingBase64 {
		return strings.NewReader(base64.StdEncoding.EncodeToString(data)), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "image")
	if err != nil {
		return nil, "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("build multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// percent renders a 0-1 threshold as the integer percentage the service expects.
func percent(v float64) string {
	return strconv.Itoa(int(v*100 + 0.5))
}

func cacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func clonePredictions(p []Prediction) []Prediction {
	if p == nil {
		return nil
	}
	out := make([]Prediction, len(p))
	copy(out, p)
	return out
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
