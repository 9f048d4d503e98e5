package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

const (
	// requestTimeout bounds every single outbound call independently of the
	// retry loop, so a stuck downstream cannot block a scheduler tick.
	requestTimeout = 10 * time.Second

	// extraAttempts is the number of retries after the first attempt
	extraAttempts = 2

	// retryBaseDelay and retryMaxDelay bound the per-request backoff
	retryBaseDelay = time.Second
	retryMaxDelay  = 5 * time.Second

	// maxResponseSize is the maximum allowed marketplace response size (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// RequestError carries the HTTP status and body of a failed marketplace call.
type RequestError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("platform: request failed with HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure is transient. Any 4xx other than 429
// is a client error and must not be retried.
func (e *RequestError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// Request describes one outbound marketplace call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is JSON-marshaled when non-nil
	Body any
}

// Client is the shared bounded-retry executor injected into every platform
// adapter. It retries transient failures up to two extra attempts with
// exponential backoff and aborts immediately on non-retryable client errors.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a request executor with the standard per-request timeout.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Do executes the request, returning the response body and HTTP status.
// Transient failures (network errors, 5xx, 429) are retried with backoff
// min(1s * 2^attempt, 5s); other 4xx responses abort immediately with a
// *RequestError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, int, error) {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt <= extraAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(backoffDelay(attempt - 1)):
			}
		}

		body, status, err := c.doOnce(ctx, req)
		if err == nil {
			return body, status, nil
		}

		lastErr = err
		lastStatus = status

		var reqErr *RequestError
		if errors.As(err, &reqErr) && !reqErr.Retryable() {
			return nil, status, err
		}

		c.logger.Warn("platform request attempt failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return nil, lastStatus, fmt.Errorf("%w: %v", delivery.ErrPlatformUnavailable, lastErr)
}

// DoJSON executes the request and unmarshals a successful response into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	body, _, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", delivery.ErrInvalidResponse, err)
	}
	return nil
}

// doOnce performs a single HTTP exchange.
func (c *Client) doOnce(ctx context.Context, req Request) ([]byte, int, error) {
	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("platform: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("platform: failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("platform: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, &RequestError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	return body, resp.StatusCode, nil
}

// backoffDelay computes min(retryBaseDelay * 2^attempt, retryMaxDelay).
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << attempt
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
