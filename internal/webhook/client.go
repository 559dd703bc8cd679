// Package webhook delivers analysis results to the Tod task-tracking
// service, with bounded retries and request signing.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/anahq/ana/pkg/models"
)

const (
	clientVersion = "1.0.0"
	userAgent     = "Ana-Webhook-Client/1.0"

	defaultTimeout = 30 * time.Second
	defaultRetries = 2

	baseBackoff = 1 * time.Second
	maxBackoff  = 10 * time.Second

	connectionProbeTimeout = 5 * time.Second
)

// Config controls per-client delivery behavior. Retries is the number of
// additional attempts after the first; Headers are merged into every request.
type Config struct {
	Timeout time.Duration
	Retries int
	Headers map[string]string
}

// Result is the outcome of one delivery. Err holds the last attempt's error
// message when Success is false.
type Result struct {
	Success bool
	Data    *models.TodResponse
	Err     string
}

// BatchResult reports the outcome of a batch delivery.
type BatchResult struct {
	TotalSent int
	Errors    []string
}

// Client posts payloads to a single Tod webhook endpoint. It is stateless
// apart from its immutable configuration and safe for concurrent use.
type Client struct {
	endpoint string
	config   Config
	signer   Signer
	client   *http.Client
}

// NewClient creates a webhook client. The endpoint must be an absolute
// http(s) URL. Zero config fields fall back to a 30s timeout and 2 retries.
func NewClient(endpoint string, signer Signer, cfg Config) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook endpoint %q", endpoint)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = defaultRetries
	}
	return &Client{
		endpoint: endpoint,
		config:   cfg,
		signer:   signer,
		// Per-attempt deadlines come from the request context.
		client: &http.Client{},
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// SendToTod delivers an AnaWebhookPayload. Invalid payloads fail immediately
// without any network traffic.
func (c *Client) SendToTod(ctx context.Context, payload models.AnaWebhookPayload) Result {
	if errs := models.ValidateAnaWebhookPayload(payload); len(errs) > 0 {
		return Result{Err: "Invalid AnaWebhookPayload data: " + models.JoinValidationErrors(errs)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: fmt.Sprintf("encoding payload: %v", err)}
	}
	return c.sendWithRetry(ctx, body, true)
}

// SendAnalysisResults delivers a results bundle in the legacy envelope
// format. Prefer SendToTod.
func (c *Client) SendAnalysisResults(ctx context.Context, results models.AnaResults, relatedPR string) Result {
	if errs := models.ValidateAnaResults(results); len(errs) > 0 {
		return Result{Err: "Invalid AnaResults data: " + models.JoinValidationErrors(errs)}
	}

	payload := models.NewTodWebhookPayload(models.TodPayloadTypeAnalysisResults, results, relatedPR, clientVersion)
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: fmt.Sprintf("encoding payload: %v", err)}
	}
	return c.sendWithRetry(ctx, body, false)
}

// SendSingleFailure delivers one failure record in the legacy envelope
// format.
func (c *Client) SendSingleFailure(ctx context.Context, failure models.AnalyzedFailure, relatedPR string) Result {
	if errs := models.ValidateAnalyzedFailure(failure); len(errs) > 0 {
		return Result{Err: "Invalid AnalyzedFailure data: " + models.JoinValidationErrors(errs)}
	}

	payload := models.NewTodWebhookPayload(models.TodPayloadTypeSingleFailure, failure, relatedPR, clientVersion)
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: fmt.Sprintf("encoding payload: %v", err)}
	}
	return c.sendWithRetry(ctx, body, false)
}

// TestConnection probes the endpoint with a HEAD request. Returns
// "connected" for a 2xx response and "error" for any other status.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, connectionProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Ana-Version", clientVersion)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyError(err, connectionProbeTimeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return "connected", nil
	}
	return "error", nil
}

// IsRetryable reports whether a failed attempt with the given HTTP status
// should be retried. Client errors (4xx) never are.
func IsRetryable(status int) bool {
	return status >= 500
}

// sendWithRetry posts the body up to Retries+1 times with exponential
// backoff between attempts. A parent context cancellation stops further
// retries; the last attempt's error is always the one reported.
func (c *Client) sendWithRetry(ctx context.Context, body []byte, signed bool) Result {
	maxAttempts := c.config.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, status, err := c.doRequest(ctx, body, signed)
		if err == nil {
			return Result{Success: true, Data: data}
		}
		lastErr = err

		if status != 0 && !IsRetryable(status) {
			break
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return Result{Err: lastErr.Error()}
			}
		}
	}

	return Result{Err: lastErr.Error()}
}

// doRequest performs one POST attempt. The returned status is zero for
// transport-level failures.
func (c *Client) doRequest(ctx context.Context, body []byte, signed bool) (*models.TodResponse, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Ana-Version", clientVersion)
	if signed {
		req.Header.Set("X-Ana-Signature", c.signer.Sign(body))
		req.Header.Set("X-Ana-Timestamp", time.Now().UTC().Format(time.RFC3339))
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, classifyError(err, c.config.Timeout)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errors.New(httpErrorMessage(resp.StatusCode, respBody))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, 0, errors.New("Empty response from Tod webhook")
	}

	var todResp models.TodResponse
	if err := json.Unmarshal(respBody, &todResp); err != nil {
		return nil, 0, fmt.Errorf("Invalid JSON response from Tod webhook: %v", err)
	}

	return &todResp, resp.StatusCode, nil
}

// httpErrorMessage builds "HTTP <status>: <text>" and appends the server's
// error detail when the error body carries one.
func httpErrorMessage(status int, body []byte) string {
	msg := fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))

	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return msg + " - " + errResp.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return msg + " - " + text
	}
	return msg
}

// classifyError maps transport-level errors to delivery error messages.
func classifyError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("Request timeout after %dms", timeout.Milliseconds())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("Request timeout after %dms", timeout.Milliseconds())
	}

	return fmt.Errorf("Network error: %v", err)
}

// backoffDelay doubles per attempt starting at 1s, capped at 10s.
func backoffDelay(attempt int) time.Duration {
	delay := baseBackoff << uint(attempt-1)
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// BatchSendFailures delivers failures in concurrent batches of batchSize via
// SendSingleFailure. It keeps going past individual failures and reports
// them together at the end.
func BatchSendFailures(ctx context.Context, client *Client, failures []models.AnalyzedFailure, relatedPR string, batchSize int) (BatchResult, error) {
	if batchSize <= 0 {
		batchSize = 10
	}

	var (
		mu     sync.Mutex
		result BatchResult
	)

	for start := 0; start < len(failures); start += batchSize {
		end := start + batchSize
		if end > len(failures) {
			end = len(failures)
		}

		var wg sync.WaitGroup
		for _, failure := range failures[start:end] {
			wg.Add(1)
			go func(f models.AnalyzedFailure) {
				defer wg.Done()
				res := client.SendSingleFailure(ctx, f, relatedPR)

				mu.Lock()
				defer mu.Unlock()
				if res.Success {
					result.TotalSent++
				} else {
					result.Errors = append(result.Errors, res.Err)
				}
			}(failure)
		}
		wg.Wait()
	}

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("Failed to send %d failures: %s", len(result.Errors), strings.Join(result.Errors, ", "))
	}
	return result, nil
}
