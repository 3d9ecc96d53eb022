package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RiRi-380/Lipsynctool-beta/internal/metrics"
	"github.com/RiRi-380/Lipsynctool-beta/internal/segment"
)

// Config contains alignment client configuration.
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	Model         string // alignment model name, service default when empty
	UseGPU        bool
}

// Validate checks client configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// Client is an HTTP client for the alignment service. It bounds concurrent
// requests with a semaphore and retries transient failures with exponential
// backoff. Client implements segment.Recognizer.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}
	metrics    *metrics.Metrics

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64

	mu sync.RWMutex
}

// Stats is a snapshot of client counters.
type Stats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
	TotalRetries    uint64  `json:"total_retries"`
	ActiveRequests  int     `json:"active_requests"`
}

var _ segment.Recognizer = (*Client)(nil)

// alignResponse is the service's JSON reply: one interval per phoneme of
// the transcript, in order.
type alignResponse struct {
	OverallRMS float64 `json:"rms_value"`
	Phonemes   []struct {
		Surface    string  `json:"surface"`
		Label      string  `json:"phoneme"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float32 `json:"confidence"`
	} `json:"phonemes"`
}

// NewClient creates an alignment client with validated configuration. A nil
// *metrics.Metrics disables metrics collection.
func NewClient(config Config, m *metrics.Metrics) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
		metrics:    m,
	}, nil
}

// Hints uploads the recording and transcript and returns the aligned
// phoneme intervals.
func (c *Client) Hints(ctx context.Context, wavData []byte, transcript string) ([]segment.Hint, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.count(&c.totalRequests)
	c.metrics.RecordAlignmentRequest()
	startTime := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.count(&c.totalRetries)
			c.metrics.RecordAlignmentRetry()

			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				c.count(&c.failedRequests)
				c.metrics.RecordAlignmentFailure(time.Since(startTime).Seconds())
				return nil, ctx.Err()
			}
		}

		hints, err := c.doRequest(ctx, wavData, transcript)
		if err == nil {
			c.count(&c.successRequests)
			c.metrics.RecordAlignmentSuccess(time.Since(startTime).Seconds())
			return hints, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	c.count(&c.failedRequests)
	c.metrics.RecordAlignmentFailure(time.Since(startTime).Seconds())
	return nil, fmt.Errorf("alignment failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// doRequest performs a single HTTP request to the alignment service.
func (c *Client) doRequest(ctx context.Context, wavData []byte, transcript string) ([]segment.Hint, error) {
	body, contentType, err := c.multipartBody(wavData, transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var aligned alignResponse
	if err := json.Unmarshal(respBody, &aligned); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	hints := make([]segment.Hint, len(aligned.Phonemes))
	for i, p := range aligned.Phonemes {
		hints[i] = segment.Hint{
			Surface:    p.Surface,
			Label:      p.Label,
			Start:      p.Start,
			End:        p.End,
			Confidence: p.Confidence,
		}
	}
	return hints, nil
}

// multipartBody builds the form body: the WAV file plus alignment fields.
func (c *Client) multipartBody(wavData []byte, transcript string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"transcript": transcript,
		"use_gpu":    fmt.Sprintf("%t", c.config.UseGPU),
	}
	if c.config.Model != "" {
		fields["model"] = c.config.Model
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// isRetryable reports whether a request failure is worth another attempt:
// server errors, rate limiting and connection-level failures.
func isRetryable(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}
	errStr := err.Error()
	if strings.Contains(errStr, "HTTP error 5") || strings.Contains(errStr, "HTTP error 429") {
		return true
	}
	return strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused")
}

func (c *Client) count(field *uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field++
}

// GetStats returns a snapshot of the client counters.
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}
	return Stats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		ActiveRequests:  c.config.MaxConcurrent - len(c.semaphore),
	}
}

// Close waits for in-flight requests to finish.
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}
	return nil
}
