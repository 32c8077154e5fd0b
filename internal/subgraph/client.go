// Package subgraph queries the Nouns subgraph for auctions and executed
// proposals, optionally caching responses in Redis.
package subgraph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
)

const requestTimeout = 15 * time.Second

// Cache stores raw query responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client runs GraphQL queries against one subgraph endpoint.
type Client struct {
	gql    *graphql.Client
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache caches responses for ttl. A zero ttl or nil cache disables it.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.ttl = ttl
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a subgraph client for url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		gql:    graphql.NewClient(url, graphql.WithHTTPClient(&http.Client{Timeout: requestTimeout})),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs query with vars and decodes the data object into out.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	key, err := cacheKey(query, vars)
	if err != nil {
		return err
	}

	if c.caching() {
		raw, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("Subgraph cache read failed", "error", err)
		case ok:
			if err := json.Unmarshal(raw, out); err == nil {
				c.logger.Debug("Subgraph cache hit", "key", key)
				return nil
			}
		}
	}

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	if err := c.gql.Run(ctx, req, out); err != nil {
		return fmt.Errorf("subgraph query: %w", err)
	}

	if c.caching() {
		raw, err := json.Marshal(out)
		if err == nil {
			err = c.cache.Set(ctx, key, raw, c.ttl)
		}
		if err != nil {
			c.logger.Warn("Subgraph cache write failed", "error", err)
		}
	}
	return nil
}

func (c *Client) caching() bool {
	return c.cache != nil && c.ttl > 0
}

func cacheKey(query string, vars map[string]any) (string, error) {
	encoded, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(query))
	h.Write(encoded)
	return "subgraph:" + hex.EncodeToString(h.Sum(nil)), nil
}
