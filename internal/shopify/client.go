// Package shopify is a thin Admin GraphQL client, one instance per store.
package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/r0busta/graphql"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"

	DefaultAPIVersion = "2025-01"
	DefaultTimeout    = 60 * time.Second

	// MaxPageSize is the per-page ceiling of connection fields.
	MaxPageSize = 250
)

// Option is used to configure a Client.
type Option func(c *Client)

// WithVersion sets the Admin API version if the passed string is not empty.
func WithVersion(apiVersion string) Option {
	return func(c *Client) {
		if apiVersion != "" {
			c.apiVersion = apiVersion
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEndpoint overrides the GraphQL URL derived from the store domain.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

type transport struct {
	accessToken string
	base        http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(accessTokenHeader, t.accessToken)
	return t.base.RoundTrip(req)
}

// Client executes queries against one store.
type Client struct {
	domain     string
	apiVersion string
	endpoint   string
	timeout    time.Duration
	gql        *graphql.Client
}

func NewClient(storeURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		domain:     Domain(storeURL),
		apiVersion: DefaultAPIVersion,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = Endpoint(storeURL, c.apiVersion)
	}
	httpClient := &http.Client{
		Timeout:   c.timeout,
		Transport: &transport{accessToken: accessToken, base: http.DefaultTransport},
	}
	c.gql = graphql.NewClient(c.endpoint, httpClient)
	return c
}

// Domain strips scheme, path and trailing slashes from a store URL.
func Domain(storeURL string) string {
	d := strings.TrimSpace(storeURL)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	return d
}

func Endpoint(storeURL, apiVersion string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", Domain(storeURL), apiVersion)
}

func (c *Client) Domain() string { return c.domain }

// Execute runs one query. Transport failures, non-200 responses and GraphQL
// error payloads all come back as an error.
func (c *Client) Execute(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if err := c.gql.QueryString(ctx, query, vars, out); err != nil {
		return fmt.Errorf("shopify %s: %w", c.domain, err)
	}
	return nil
}

// Factory builds clients that share the same options.
type Factory func(storeURL, accessToken string) *Client

func NewFactory(opts ...Option) Factory {
	return func(storeURL, accessToken string) *Client {
		return NewClient(storeURL, accessToken, opts...)
	}
}
