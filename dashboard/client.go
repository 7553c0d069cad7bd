// Package dashboard is an HTTP client for the sidecar experiment-tracking
// dashboard. Every call forwards a tagged payload keyed by a global step
// index; nothing is ever read back.
package dashboard

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anomeval/anomeval/eval"
)

// Config contains configuration for the dashboard client.
type Config struct {
	BaseURL       string        `json:"base_url" mapstructure:"base_url"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
	RetryAttempts int           `json:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay" mapstructure:"retry_delay"`
}

// DefaultConfig returns the default dashboard configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:8080",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// Response represents a reply from the dashboard service.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Client talks to the dashboard service. A disabled client turns every call
// into a no-op success, so a run without a dashboard still logs to disk.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
	enabled       bool
}

// New creates a new dashboard client. The client starts disabled.
func New(config Config) *Client {
	attempts := config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retryAttempts: attempts,
		retryDelay:    config.RetryDelay,
		enabled:       false,
	}
}

// Enable enables forwarding to the dashboard.
func (c *Client) Enable() {
	c.enabled = true
}

// Disable disables forwarding to the dashboard.
func (c *Client) Disable() {
	c.enabled = false
}

// IsEnabled returns whether the client forwards to the dashboard.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

type scalarsRequest struct {
	Tag    string             `json:"tag"`
	Step   int                `json:"step"`
	Values map[string]float64 `json:"values"`
}

type imageRequest struct {
	Tag       string `json:"tag"`
	Step      int    `json:"step"`
	PNGBase64 string `json:"png_base64"`
}

type prCurveRequest struct {
	Tag                 string    `json:"tag"`
	Step                int       `json:"step"`
	TruePositiveCounts  []int     `json:"true_positive_counts"`
	FalsePositiveCounts []int     `json:"false_positive_counts"`
	TrueNegativeCounts  []int     `json:"true_negative_counts"`
	FalseNegativeCounts []int     `json:"false_negative_counts"`
	Precision           []float64 `json:"precision"`
	Recall              []float64 `json:"recall"`
	NumThresholds       int       `json:"num_thresholds"`
}

// AddScalars forwards a group of named scalars under one tag.
func (c *Client) AddScalars(tag string, values map[string]float64, step int) error {
	return c.post("/api/scalars", scalarsRequest{Tag: tag, Step: step, Values: values})
}

// AddImage forwards an encoded PNG image grid.
func (c *Client) AddImage(tag string, png []byte, step int) error {
	return c.post("/api/image", imageRequest{
		Tag:       tag,
		Step:      step,
		PNGBase64: base64.StdEncoding.EncodeToString(png),
	})
}

// AddFigure forwards a rendered figure as an encoded PNG.
func (c *Client) AddFigure(tag string, png []byte, step int) error {
	return c.post("/api/figure", imageRequest{
		Tag:       tag,
		Step:      step,
		PNGBase64: base64.StdEncoding.EncodeToString(png),
	})
}

// AddPRCurveRaw forwards raw precision-recall curve arrays. NumThresholds is
// the requested threshold count, which may exceed the array lengths when
// degenerate thresholds were skipped during sampling.
func (c *Client) AddPRCurveRaw(tag string, sample *eval.PRCurveSample, step int) error {
	return c.post("/api/pr-curve-raw", prCurveRequest{
		Tag:                 tag,
		Step:                step,
		TruePositiveCounts:  sample.TP,
		FalsePositiveCounts: sample.FP,
		TrueNegativeCounts:  sample.TN,
		FalseNegativeCounts: sample.FN,
		Precision:           sample.Precision,
		Recall:              sample.Recall,
		NumThresholds:       sample.Requested,
	})
}

// CheckHealth checks if the dashboard service is reachable.
func (c *Client) CheckHealth() error {
	if !c.enabled {
		return fmt.Errorf("dashboard client is disabled")
	}

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	return nil
}

// post marshals the payload and sends it, retrying transient failures up to
// the configured attempt count.
func (c *Client) post(path string, payload interface{}) error {
	if !c.enabled {
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(c.retryDelay)
		}

		lastErr = c.send(path, jsonData)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to send to dashboard after %d attempts: %w", c.retryAttempts, lastErr)
}

func (c *Client) send(path string, jsonData []byte) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "anomeval")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var response Response
	if err := json.Unmarshal(respBody, &response); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dashboard request failed with status %d: %s", resp.StatusCode, response.Message)
	}

	return nil
}
