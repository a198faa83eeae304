// Package httpclient provides an HTTP client assembled from RoundTripper middleware.
package httpclient

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request, including retries performed by middleware.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client that supports middleware chaining.
type Client struct {
	base       *http.Client
	userAgent  string
	middleware []Middleware
}

// Middleware wraps an http.RoundTripper to add behavior.
// The first middleware passed to WithMiddleware is the outermost one.
type Middleware func(http.RoundTripper) http.RoundTripper

// New creates a new HTTP client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		base: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	chain := c.middleware
	if c.userAgent != "" {
		chain = append([]Middleware{userAgent(c.userAgent)}, chain...)
	}

	if len(chain) > 0 {
		transport := c.base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}

		for i := len(chain) - 1; i >= 0; i-- {
			transport = chain[i](transport)
		}

		c.base.Transport = transport
	}

	return c
}

// Do executes an HTTP request through the middleware chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	//nolint:wrapcheck // Callers wrap with endpoint context
	return c.base.Do(req)
}

// HTTPClient returns the underlying http.Client with the chain installed as its transport.
func (c *Client) HTTPClient() *http.Client {
	return c.base
}

func userAgent(value string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("User-Agent") == "" {
				req = req.Clone(req.Context())
				req.Header.Set("User-Agent", value)
			}
			//nolint:wrapcheck // Middleware passes through errors from next handler in chain
			return next.RoundTrip(req)
		})
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
