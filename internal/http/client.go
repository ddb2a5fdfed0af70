// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wneessen/troncon/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 10
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with API requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) troncon/%s (+https://github.com/wneessen/troncon/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)
)

// Client is a type wrapper for the Go stdlib http.Client and the Config
type Client struct {
	*http.Client
	logger *logger.Logger
}

// StatusError is returned when the server answers with a non-success status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// RetryPolicy bounds the attempts of GetWithRetry.
type RetryPolicy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RetryNotifyFunc is called after a failed attempt, before waiting next.
type RetryNotifyFunc func(attempt uint, err error, next time.Duration)

// New returns a new HTTP client
func New(logger *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	httpClient := &http.Client{
		Timeout:   0, // per request timeouts are set via context
		Transport: httpTransport,
	}
	return &Client{httpClient, logger}
}

// Get performs a HTTP GET request for the given URL and returns the response body
func (h *Client) Get(ctx context.Context, endpoint string, query url.Values, headers map[string]string) ([]byte, error) {
	return h.GetWithTimeout(ctx, endpoint, query, headers, DefaultTimeout)
}

// GetWithTimeout performs a HTTP GET request for the given URL and timeout and returns the response
// body. A non-success status code results in a *StatusError.
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, query url.Values, headers map[string]string,
	timeout time.Duration,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Prepare URL and query parameters
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return nil, errors.New("nil response received")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("failed to close HTTP request body", logger.Err(err))
		}
	}(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &StatusError{StatusCode: response.StatusCode}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP response body: %w", err)
	}
	return body, nil
}

// GetWithRetry calls GetWithTimeout until it succeeds or the policy is exhausted. Failed attempts
// are spaced with an exponential backoff. Context errors and non-temporary status codes stop
// the retries right away. The returned count is the number of attempts made.
func (h *Client) GetWithRetry(ctx context.Context, endpoint string, query url.Values, headers map[string]string,
	timeout time.Duration, policy RetryPolicy, notify RetryNotifyFunc,
) ([]byte, uint, error) {
	expBackoff := backoff.NewExponentialBackOff()
	if policy.InitialBackoff > 0 {
		expBackoff.InitialInterval = policy.InitialBackoff
	}
	if policy.MaxBackoff > 0 {
		expBackoff.MaxInterval = policy.MaxBackoff
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var attempts uint
	operation := func() ([]byte, error) {
		attempts++
		body, err := h.GetWithTimeout(ctx, endpoint, query, headers, timeout)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			if notify != nil {
				notify(attempts, err, next)
			}
		}),
	)
	return body, attempts, err
}
