package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// maxBufferedBody caps how much of a retryable error response is kept
const maxBufferedBody = 64 << 10

// Client is a wrapper for HTTP client with rate limiting and retries.
// It satisfies the Do(*http.Request) doer interface used by the LLM SDKs.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	opts       ClientOptions
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	InitialInterval time.Duration
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		opts:    opts,
		logger:  log.With().Str("component", "http_client").Logger(),
	}
}

// Do performs req using the request's own context. Like http.Client.Do, a 429 or
// 5xx response that is still failing after the last retry is returned with a nil
// error so the caller can read the server's error body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.send(req.Context(), req)
	var statusErr *HTTPStatusError
	if err != nil && resp != nil && errors.As(err, &statusErr) {
		return resp, nil
	}
	return resp, err
}

// RoundTrip lets the client act as the transport of a plain *http.Client.
// req is never modified; every attempt is sent on a clone.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.Do(req)
}

// DoRequest performs an HTTP request with rate limiting and retries.
// Transport errors, 429 and 5xx responses are retried with exponential backoff;
// any other response is returned to the caller as is. When retries run out the
// last error is returned.
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// send runs the retry loop. When it gives up on a retryable status, the last
// response is returned alongside the HTTPStatusError with its body buffered.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Wait for rate limiter
	if err := c.Limiter.Wait(ctx); err != nil {
		closeBody(req)
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var resp *http.Response
	attempt := 0
	operation := func() error {
		attempt++
		attemptReq, err := requestForAttempt(ctx, req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}

		r, err := c.HTTPClient.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Debug().Err(err).Int("attempt", attempt).Msg("HTTP request failed")
			return err
		}
		if resp != nil {
			resp.Body.Close()
		}
		resp = r
		if retryable(r.StatusCode) {
			bufferBody(r)
			c.logger.Debug().Int("status", r.StatusCode).Int("attempt", attempt).Msg("Retrying HTTP request")
			return &HTTPStatusError{StatusCode: r.StatusCode}
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.InitialInterval = c.opts.InitialInterval
	backoffStrategy.MaxElapsedTime = c.opts.MaxRetryTimeout

	policy := backoff.WithContext(backoff.WithMaxRetries(backoffStrategy, uint64(c.opts.MaxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var statusErr *HTTPStatusError
		if resp != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == resp.StatusCode) {
			resp.Body.Close()
			resp = nil
		}
		return resp, err
	}

	return resp, nil
}

// Fetch downloads url and returns at most maxBytes of its body
func (c *Client) Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBytes)
	}
	return body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// requestForAttempt clones req for one attempt. Retries get a fresh body from GetBody.
func requestForAttempt(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	out := req.Clone(ctx)
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	out.Body = body
	return out, nil
}

// bufferBody reads up to maxBufferedBody bytes of a failed response into memory
// so the connection can be reused and the body still read later.
func bufferBody(resp *http.Response) {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBufferedBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}

// HTTPStatusError represents an error due to a retryable HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
