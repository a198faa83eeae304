package sitefactory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/oapi-codegen/runtime"

	"github.com/lexfrei/go-acsf/internal/httpclient"
	"github.com/lexfrei/go-acsf/internal/middleware"
	"github.com/lexfrei/go-acsf/internal/ratelimit"
	"github.com/lexfrei/go-acsf/internal/response"
	"github.com/lexfrei/go-acsf/observability"
)

const (
	// DefaultReadRateLimit is the default budget for GET requests (requests per minute).
	DefaultReadRateLimit = 600
	// DefaultWriteRateLimit is the default budget for mutating requests (requests per minute).
	DefaultWriteRateLimit = 60

	// DefaultMaxRetries is the default number of retries for failed requests.
	DefaultMaxRetries = 3
	// DefaultRetryWaitTime is the initial wait between retries.
	DefaultRetryWaitTime = 1 * time.Second
	// DefaultMaxRetryWait caps a single retry wait, including Retry-After.
	DefaultMaxRetryWait = 1 * time.Minute
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when ClientConfig.UserAgent is empty.
	DefaultUserAgent = "go-acsf"
)

// Client is a Site Factory REST API v1 client.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	schema  *schemaValidator
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// Compile-time check to ensure Client implements SiteFactoryAPIClient interface.
var _ SiteFactoryAPIClient = (*Client)(nil)

// ClientConfig holds configuration for the Site Factory client.
type ClientConfig struct {
	// Username is the Site Factory account name (required)
	Username string

	// APIKey is the API key of that account (required)
	APIKey string

	// BaseURL is the factory URL, e.g. https://www.dev-mygroup.acsitefactory.com.
	// When empty it is derived from SiteGroup and Environment.
	BaseURL string

	// SiteGroup and Environment select the factory when BaseURL is empty
	SiteGroup   string
	Environment string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// ReadRateLimitPerMinute limits GET requests (defaults to 600)
	ReadRateLimitPerMinute int

	// WriteRateLimitPerMinute limits POST/PUT/DELETE requests (defaults to 60)
	WriteRateLimitPerMinute int

	// MaxRetries sets maximum number of retries for failed requests (defaults to 3, negative disables)
	MaxRetries int

	// RetryWaitTime sets the initial wait time between retries
	RetryWaitTime time.Duration

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification (local sandboxes only)
	InsecureSkipVerify bool

	// ValidateResponses checks every successful response against the bundled OpenAPI document
	ValidateResponses bool

	// UserAgent overrides the User-Agent header
	UserAgent string

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder
}

// BaseURLFor returns the factory URL for a site group and environment.
// The live environment has no environment prefix:
//
//	BaseURLFor("mygroup", "dev")  // https://www.dev-mygroup.acsitefactory.com
//	BaseURLFor("mygroup", "live") // https://www.mygroup.acsitefactory.com
func BaseURLFor(siteGroup, environment string) string {
	if environment == "" || environment == "live" || environment == "prod" {
		return "https://www." + siteGroup + ".acsitefactory.com"
	}
	return "https://www." + environment + "-" + siteGroup + ".acsitefactory.com"
}

// New creates a client for the given factory with default settings.
//
// Default settings:
//   - Rate limit: 600 reads/minute, 60 writes/minute
//   - Max retries: 3 (idempotent requests on 5xx/429, POST only on 429)
//   - Retry wait time: 1 second, doubling
//   - Timeout: 30 seconds
//
// Example:
//
//	client, err := sitefactory.New(sitefactory.BaseURLFor("mygroup", "dev"), "deployer", "api-key")
func New(baseURL, username, apiKey string) (*Client, error) {
	return NewWithConfig(&ClientConfig{
		BaseURL:  baseURL,
		Username: username,
		APIKey:   apiKey,
	})
}

// NewWithConfig creates a client with custom configuration.
//
// Example:
//
//	client, err := sitefactory.NewWithConfig(&sitefactory.ClientConfig{
//	    SiteGroup:   "mygroup",
//	    Environment: "test",
//	    Username:    "deployer",
//	    APIKey:      apiKey,
//	    MaxRetries:  5,
//	    Logger:      myLogger,
//	})
func NewWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("username is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	// Set defaults
	if cfg.BaseURL == "" {
		if cfg.SiteGroup == "" {
			return nil, errors.New("base URL or site group is required")
		}
		cfg.BaseURL = BaseURLFor(cfg.SiteGroup, cfg.Environment)
	}
	if cfg.ReadRateLimitPerMinute == 0 {
		cfg.ReadRateLimitPerMinute = DefaultReadRateLimit
	}
	if cfg.WriteRateLimitPerMinute == 0 {
		cfg.WriteRateLimitPerMinute = DefaultWriteRateLimit
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryWaitTime == 0 {
		cfg.RetryWaitTime = DefaultRetryWaitTime
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, errors.Newf("invalid base URL %q", cfg.BaseURL)
	}

	logger := observability.OrNoop(cfg.Logger)
	metrics := observability.MetricsOrNoop(cfg.Metrics)

	// Order from outside to inside: RequestID -> Observability -> RateLimit -> Retry -> Auth -> Accept
	chain := []httpclient.Middleware{
		middleware.RequestID(),
		middleware.Observability(logger, metrics),
		middleware.RateLimit(middleware.RateLimitConfig{
			Selector: middleware.MethodSelector(
				ratelimit.PerMinute(cfg.ReadRateLimitPerMinute),
				ratelimit.PerMinute(cfg.WriteRateLimitPerMinute),
			),
			Logger:  logger,
			Metrics: metrics,
		}),
		middleware.Retry(middleware.RetryConfig{
			MaxRetries:  cfg.MaxRetries,
			InitialWait: cfg.RetryWaitTime,
			MaxWait:     DefaultMaxRetryWait,
			Logger:      logger,
			Metrics:     metrics,
		}),
		middleware.BasicAuth(cfg.Username, cfg.APIKey),
		middleware.Header("Accept", "application/json"),
	}
	if cfg.InsecureSkipVerify {
		chain = append(chain, middleware.TLSConfig(middleware.InsecureSkipVerify()))
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(cfg.HTTPClient),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithUserAgent(cfg.UserAgent),
		httpclient.WithMiddleware(chain...),
	)

	client := &Client{
		baseURL: strings.TrimRight(baseURL.String(), "/"),
		http:    httpClient.HTTPClient(),
		logger:  logger,
		metrics: metrics,
	}

	if cfg.ValidateResponses {
		client.schema, err = loadSchemaValidator()
		if err != nil {
			return nil, err
		}
	}

	return client, nil
}

// BaseURL returns the factory URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the factory is reachable and the credentials are valid.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: pathPing})
	if err != nil {
		return nil, errors.Wrap(err, "failed to ping factory")
	}
	//nolint:wrapcheck // response.Unmarshal wraps errors internally
	return response.Unmarshal[PingResponse](body, "failed to decode ping response")
}

// pathParam is a templated path segment such as {site_id}.
type pathParam struct {
	name  string
	value any
}

// request describes one API call. path is the OpenAPI path template.
type request struct {
	method   string
	path     string
	params   []pathParam
	query    url.Values
	body     any
	expected []int
}

// do executes req and returns the raw body of a successful response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	path, err := buildPath(req.path, req.params...)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var payload io.Reader = http.NoBody
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		payload = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s %s", req.method, path), ErrTransport)
	}

	status := resp.StatusCode
	body, err := response.Read(resp, req.expected...)
	if err != nil {
		//nolint:wrapcheck // response.Read builds typed API errors
		return nil, err
	}

	if c.schema != nil {
		if err := c.schema.validate(req.method, req.path, status, body); err != nil {
			c.logger.Warn("response does not match schema",
				observability.Field{Key: "method", Value: req.method},
				observability.Field{Key: "path", Value: req.path},
				observability.Field{Key: "error", Value: err.Error()},
			)
			c.metrics.RecordError("schema_validation", req.path)
			return nil, err
		}
	}

	return body, nil
}

// buildPath expands a path template with simple-style parameters, the same
// serialization oapi-codegen clients use.
func buildPath(template string, params ...pathParam) (string, error) {
	path := template
	for _, p := range params {
		styled, err := runtime.StyleParamWithLocation("simple", false, p.name, runtime.ParamLocationPath, p.value)
		if err != nil {
			return "", errors.Wrapf(err, "invalid path parameter %s", p.name)
		}
		path = strings.ReplaceAll(path, "{"+p.name+"}", styled)
	}
	return path, nil
}

// queryBuilder collects form-style query parameters, skipping zero values.
type queryBuilder struct {
	values url.Values
	err    error
}

func newQuery() *queryBuilder {
	return &queryBuilder{values: url.Values{}}
}

func (q *queryBuilder) add(name string, value any, set bool) *queryBuilder {
	if q.err != nil || !set {
		return q
	}

	fragment, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		q.err = errors.Wrapf(err, "invalid query parameter %s", name)
		return q
	}

	parsed, err := url.ParseQuery(fragment)
	if err != nil {
		q.err = errors.Wrapf(err, "invalid query parameter %s", name)
		return q
	}

	for key, values := range parsed {
		for _, v := range values {
			q.values.Add(key, v)
		}
	}

	return q
}

func (q *queryBuilder) build() (url.Values, error) {
	return q.values, q.err
}
