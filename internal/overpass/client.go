// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package overpass implements the geodata client for the Overpass API. Responses are memoized by
// their exact query text.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wneessen/troncon/internal/config"
	"github.com/wneessen/troncon/internal/http"
	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/metrics"
)

const queryParam = "data"

var (
	// ErrNetworkFailure is returned when the API could not be reached successfully within the
	// configured number of attempts.
	ErrNetworkFailure = errors.New("geodata service request failed")

	// ErrRuntimeRemark is returned when the API answered but reported a runtime error, e.g. a
	// query timeout. Such responses are not cached.
	ErrRuntimeRemark = errors.New("geodata service reported a runtime error")
)

// Cache stores raw responses by query.
type Cache interface {
	Get(query string) ([]byte, bool)
	Put(query string, response []byte)
}

// NetworkFailureError describes a query that failed after all attempts.
type NetworkFailureError struct {
	Attempts uint
	Err      error
}

func (e *NetworkFailureError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %s", ErrNetworkFailure, e.Attempts, e.Err)
}

func (e *NetworkFailureError) Unwrap() []error {
	return []error{ErrNetworkFailure, e.Err}
}

// Client fetches Overpass responses, consulting the cache first. It is safe for concurrent use;
// concurrent fetches of the same uncached query share a single request.
type Client struct {
	http     *http.Client
	cache    Cache
	logger   *logger.Logger
	metrics  *metrics.Metrics
	endpoint string
	timeout  time.Duration
	policy   http.RetryPolicy
	queries  QueryBuilder
	inflight singleflight.Group
}

func New(client *http.Client, cache Cache, conf *config.Config, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		http:     client,
		cache:    cache,
		logger:   log,
		metrics:  m,
		endpoint: conf.API.Endpoint,
		timeout:  conf.API.Timeout,
		policy: http.RetryPolicy{
			MaxAttempts:    conf.API.MaxAttempts,
			InitialBackoff: conf.API.InitialBackoff,
			MaxBackoff:     conf.API.MaxBackoff,
		},
		queries: QueryBuilder{Timeout: conf.API.Timeout},
	}
}

// Queries returns the query builder matching the client's timeout.
func (c *Client) Queries() QueryBuilder {
	return c.queries
}

// Cached reports whether a response for query is already cached.
func (c *Client) Cached(query string) bool {
	_, ok := c.cache.Get(query)
	return ok
}

// Fetch returns the response for query.
func (c *Client) Fetch(ctx context.Context, query string) (*Response, error) {
	if raw, ok := c.cache.Get(query); ok {
		c.metrics.CacheHit()
		c.logger.Debug("cache hit", slog.String("query", query))
		return decode(raw)
	}
	c.metrics.CacheMiss()
	c.logger.Info("cache missed", slog.String("query", query))

	value, err, _ := c.inflight.Do(query, func() (any, error) {
		// A concurrent flight for the same query may have completed in the meantime
		if raw, ok := c.cache.Get(query); ok {
			return decode(raw)
		}
		return c.request(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Response), nil
}

func (c *Client) request(ctx context.Context, query string) (*Response, error) {
	params := url.Values{}
	params.Set(queryParam, query)

	notify := func(attempt uint, err error, next time.Duration) {
		c.metrics.Retry()
		c.logger.Warn("geodata request failed, requesting again", slog.Uint64("attempt", uint64(attempt)),
			slog.Duration("backoff", next), logger.Err(err))
	}
	raw, attempts, err := c.http.GetWithRetry(ctx, c.endpoint, params, nil, c.timeout, c.policy, notify)
	if err != nil {
		c.metrics.Request(false)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, &NetworkFailureError{Attempts: attempts, Err: err}
	}
	c.metrics.Request(true)

	response, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if strings.Contains(response.Remark, "runtime error") {
		return nil, fmt.Errorf("%w: %s", ErrRuntimeRemark, response.Remark)
	}
	c.cache.Put(query, raw)
	return response, nil
}

func decode(raw []byte) (*Response, error) {
	response := new(Response)
	if err := json.Unmarshal(raw, response); err != nil {
		return nil, fmt.Errorf("failed to decode geodata response: %w", err)
	}
	return response, nil
}
