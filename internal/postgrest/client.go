// Package postgrest is a small client for PostgREST-style relational REST
// endpoints such as the one Supabase exposes under /rest/v1.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/abgdnv/smartstock/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// Prefer header values understood by the store.
const (
	PreferRepresentation = "return=representation"
	PreferMinimal        = "return=minimal"
	PreferMergeMinimal   = "resolution=merge-duplicates,return=minimal"
)

const defaultRestPath = "/rest/v1"

// Client issues authenticated requests against one store endpoint.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	base       *url.URL
	restPath   string
	key        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRestPath sets the path prefix placed before every relation. An empty path addresses relations at the root.
func WithRestPath(path string) Option {
	return func(c *Client) { c.restPath = path }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTransport sets the round tripper of the underlying HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCircuitBreaker guards requests with a breaker built from cfg. A disabled config is ignored.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(c *Client) {
		if cfg.Enabled {
			c.breaker = newBreaker(cfg, c.logger)
		}
	}
}

// New creates a client for the store at baseURL authenticated with key.
func New(baseURL, key string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("store url must be absolute: %q", baseURL)
	}
	c := &Client{
		base:       u,
		restPath:   defaultRestPath,
		key:        key,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "postgrest")
	return c, nil
}

// NewFromConfig creates a client from validated store settings. opts are applied last.
func NewFromConfig(cfg config.StoreConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	return New(cfg.URL, cfg.Key, append([]Option{
		WithRestPath(cfg.RestPath),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
		WithCircuitBreaker(cfg.CircuitBreaker),
	}, opts...)...)
}

// Select reads rows of relation. The returned body is the raw JSON array.
func (c *Client) Select(ctx context.Context, relation string, query url.Values) ([]byte, error) {
	return c.execute(ctx, http.MethodGet, relation, query, nil, "")
}

// Insert posts body (an object or an array of objects) to relation.
func (c *Client) Insert(ctx context.Context, relation string, query url.Values, body any, prefer string) ([]byte, error) {
	return c.execute(ctx, http.MethodPost, relation, query, body, prefer)
}

// Update patches the rows of relation matched by filter and returns them.
func (c *Client) Update(ctx context.Context, relation string, filter url.Values, body any) ([]byte, error) {
	return c.execute(ctx, http.MethodPatch, relation, filter, body, PreferRepresentation)
}

// Delete removes the rows of relation matched by filter.
func (c *Client) Delete(ctx context.Context, relation string, filter url.Values) error {
	_, err := c.execute(ctx, http.MethodDelete, relation, filter, nil, "")
	return err
}

func (c *Client) execute(ctx context.Context, method, relation string, query url.Values, body any, prefer string) ([]byte, error) {
	if c.breaker == nil {
		return c.do(ctx, method, relation, query, body, prefer)
	}
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, relation, query, body, prefer)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return data, err
}

func (c *Client) do(ctx context.Context, method, relation string, query url.Values, body any, prefer string) ([]byte, error) {
	target := c.base.JoinPath(c.restPath, relation)
	target.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", relation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, relation, err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Store request failed", "method", method, "relation", relation, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, relation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, relation, err)
	}
	c.logger.DebugContext(ctx, "Store request completed",
		"method", method,
		"relation", relation,
		"query", target.RawQuery,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, data)
	}
	return data, nil
}
