// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/testhelper"
)

const testFile = "../../testdata/overpass_node.json"

var testPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     time.Millisecond * 5,
}

func TestNew(t *testing.T) {
	client := New(logger.New(slog.LevelInfo))
	if client == nil {
		t.Fatal("expected client to be non-nil")
	}
}

func TestStatusError_Temporary(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{stdhttp.StatusTooManyRequests, true},
		{stdhttp.StatusRequestTimeout, true},
		{stdhttp.StatusGatewayTimeout, true},
		{stdhttp.StatusInternalServerError, true},
		{stdhttp.StatusBadRequest, false},
		{stdhttp.StatusNotFound, false},
	}
	for _, tc := range tests {
		t.Run(stdhttp.StatusText(tc.status), func(t *testing.T) {
			err := &StatusError{StatusCode: tc.status}
			if err.Temporary() != tc.want {
				t.Errorf("expected temporary to be %t for status %d", tc.want, tc.status)
			}
			if !strings.Contains(err.Error(), stdhttp.StatusText(tc.status)) {
				t.Errorf("expected error to contain status text, got %q", err.Error())
			}
		})
	}
}

func TestClient_Get(t *testing.T) {
	t.Run("getting a response body should work", func(t *testing.T) {
		var gotQuery string
		var gotAgent string
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotQuery = req.URL.Query().Get("data")
			gotAgent = req.Header.Get("User-Agent")
			data, err := os.Open(testFile)
			if err != nil {
				t.Fatalf("failed to open JSON response file: %s", err)
			}

			return &stdhttp.Response{
				StatusCode: 200,
				Body:       data,
				Header:     make(stdhttp.Header),
			}, nil
		}

		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}
		query := url.Values{}
		query.Add("data", "[out:json];node(1);out;")

		body, err := client.Get(t.Context(), "https://example.com", query, map[string]string{"X-Custom": "1"})
		if err != nil {
			t.Fatalf("failed to get response: %s", err)
		}
		want, err := os.ReadFile(testFile)
		if err != nil {
			t.Fatalf("failed to read JSON response file: %s", err)
		}
		if !bytes.Equal(body, want) {
			t.Errorf("expected body to match test file, got %q", body)
		}
		if gotQuery != "[out:json];node(1);out;" {
			t.Errorf("expected data query parameter to be sent, got %q", gotQuery)
		}
		if gotAgent != UserAgent {
			t.Errorf("expected User-Agent to be %q, got %q", UserAgent, gotAgent)
		}
	})
	t.Run("parsing an invalid url should fail", func(t *testing.T) {
		client := New(logger.New(slog.LevelInfo))
		_, err := client.Get(t.Context(), "http://example.com/xyz%", nil, nil)
		if err == nil {
			t.Fatal("expected get to fail")
		}
		if !strings.Contains(err.Error(), "failed to parse URL") {
			t.Errorf("expected error to contain 'failed to parse URL', got %s", err)
		}
	})
	t.Run("get request fails", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		}

		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, err := client.Get(t.Context(), "https://example.com", nil, nil)
		if err == nil {
			t.Fatal("expected get request to fail")
		}
	})
	t.Run("non-success status code returns a status error", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: stdhttp.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader("rate limited")),
				Header:     make(stdhttp.Header),
			}, nil
		}

		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, err := client.Get(t.Context(), "https://example.com", nil, nil)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected status error, got %v", err)
		}
		if statusErr.StatusCode != stdhttp.StatusTooManyRequests {
			t.Errorf("expected status code 429, got %d", statusErr.StatusCode)
		}
	})
	t.Run("failing to close the body is only logged", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: 200,
				Body:       &failCloser{Reader: strings.NewReader("{}")},
				Header:     make(stdhttp.Header),
			}, nil
		}

		buf := bytes.NewBuffer(nil)
		client := New(logger.NewLogger(slog.LevelInfo, buf))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		body, err := client.Get(t.Context(), "https://example.com", nil, nil)
		if err != nil {
			t.Fatalf("expected get request to succeed, got %s", err)
		}
		if string(body) != "{}" {
			t.Errorf("expected body to be %q, got %q", "{}", body)
		}
		if !strings.Contains(buf.String(), "failed to close HTTP request body") {
			t.Errorf("expected close failure to be logged, got %q", buf.String())
		}
	})
}

func TestClient_GetWithTimeout(t *testing.T) {
	t.Run("get request fails on context cancel", func(t *testing.T) {
		testhelper.PerformIntegrationTests(t)
		client := New(logger.New(slog.LevelInfo))
		ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
		defer cancel()

		_, err := client.GetWithTimeout(ctx, testhelper.TestOnlineAPIURL, nil, nil, time.Second*5)
		if err == nil {
			t.Fatal("expected get request to fail")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected error to be %s, got %s", context.DeadlineExceeded, err)
		}
	})
	t.Run("get request times out", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, err := client.GetWithTimeout(t.Context(), "https://example.com", nil, nil, time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected error to be %s, got %v", context.DeadlineExceeded, err)
		}
	})
}

func TestClient_GetWithRetry(t *testing.T) {
	t.Run("transient failures are retried until success", func(t *testing.T) {
		var calls atomic.Int32
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			if calls.Add(1) < 3 {
				return &stdhttp.Response{
					StatusCode: stdhttp.StatusGatewayTimeout,
					Body:       io.NopCloser(strings.NewReader("")),
					Header:     make(stdhttp.Header),
				}, nil
			}
			return &stdhttp.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"elements":[]}`)),
				Header:     make(stdhttp.Header),
			}, nil
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		var notified []uint
		body, attempts, err := client.GetWithRetry(t.Context(), "https://example.com", nil, nil, time.Second,
			testPolicy, func(attempt uint, _ error, _ time.Duration) { notified = append(notified, attempt) })
		if err != nil {
			t.Fatalf("expected retry to succeed, got %s", err)
		}
		if string(body) != `{"elements":[]}` {
			t.Errorf("unexpected body: %q", body)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
		if len(notified) != 2 {
			t.Errorf("expected 2 retry notifications, got %d", len(notified))
		}
	})
	t.Run("retries stop after the maximum number of attempts", func(t *testing.T) {
		var calls atomic.Int32
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			calls.Add(1)
			return &stdhttp.Response{
				StatusCode: stdhttp.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("")),
				Header:     make(stdhttp.Header),
			}, nil
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, attempts, err := client.GetWithRetry(t.Context(), "https://example.com", nil, nil, time.Second,
			testPolicy, nil)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected status error, got %v", err)
		}
		if attempts != testPolicy.MaxAttempts {
			t.Errorf("expected %d attempts, got %d", testPolicy.MaxAttempts, attempts)
		}
		if calls.Load() != int32(testPolicy.MaxAttempts) {
			t.Errorf("expected %d calls, got %d", testPolicy.MaxAttempts, calls.Load())
		}
	})
	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			calls.Add(1)
			return &stdhttp.Response{
				StatusCode: stdhttp.StatusBadRequest,
				Body:       io.NopCloser(strings.NewReader("")),
				Header:     make(stdhttp.Header),
			}, nil
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, attempts, err := client.GetWithRetry(t.Context(), "https://example.com", nil, nil, time.Second,
			testPolicy, nil)
		if err == nil {
			t.Fatal("expected request to fail")
		}
		if attempts != 1 || calls.Load() != 1 {
			t.Errorf("expected a single attempt, got %d attempts and %d calls", attempts, calls.Load())
		}
	})
	t.Run("a cancelled context is not retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			cancel()
			return nil, context.Canceled
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, attempts, err := client.GetWithRetry(ctx, "https://example.com", nil, nil, time.Second, testPolicy, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected error to be %s, got %v", context.Canceled, err)
		}
		if attempts != 1 {
			t.Errorf("expected a single attempt, got %d", attempts)
		}
	})
}

type failCloser struct {
	io.Reader
}

func (failCloser) Close() error { return errors.New("failed to close") }
