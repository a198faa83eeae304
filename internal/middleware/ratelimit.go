package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-acsf/observability"
)

// RateLimiterSelector chooses which limiter applies to a request.
// It returns the limiter and a short name used in logs and metrics.
type RateLimiterSelector func(*http.Request) (*rate.Limiter, string)

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	Limiter  *rate.Limiter       // Single limiter (used if Selector is nil)
	Selector RateLimiterSelector // Optional: select limiter based on request
	Logger   observability.Logger
	Metrics  observability.MetricsRecorder
}

// MethodSelector returns a selector that sends safe methods (GET, HEAD) to read
// and everything else to write. Mutating Site Factory calls start server-side
// tasks, so they usually get a tighter budget. A nil limiter disables limiting
// for that class.
func MethodSelector(read, write *rate.Limiter) RateLimiterSelector {
	return func(req *http.Request) (*rate.Limiter, string) {
		switch req.Method {
		case http.MethodGet, http.MethodHead:
			return read, "read"
		default:
			return write, "write"
		}
	}
}

// RateLimit returns a middleware that delays requests to stay within the limiter budget.
func RateLimit(cfg RateLimitConfig) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &rateLimitTransport{
			next:     next,
			limiter:  cfg.Limiter,
			selector: cfg.Selector,
			logger:   observability.OrNoop(cfg.Logger),
			metrics:  observability.MetricsOrNoop(cfg.Metrics),
		}
	}
}

type rateLimitTransport struct {
	next     http.RoundTripper
	limiter  *rate.Limiter
	selector RateLimiterSelector
	logger   observability.Logger
	metrics  observability.MetricsRecorder
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	limiter := t.limiter
	class := "default"

	if t.selector != nil {
		limiter, class = t.selector(req)
	}

	if limiter != nil {
		if err := t.wait(req.Context(), limiter, class, req.URL.Path); err != nil {
			return nil, err
		}
	}

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

func (t *rateLimitTransport) wait(ctx context.Context, limiter *rate.Limiter, class, path string) error {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return errors.New("rate limit reservation failed")
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	t.logger.Debug("rate limit delay",
		observability.Field{Key: "class", Value: class},
		observability.Field{Key: "delay", Value: delay},
		observability.Field{Key: "path", Value: path},
	)
	t.metrics.RecordRateLimit(normalizePath(path), delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return errors.Wrap(ctx.Err(), "context canceled during rate limit wait")
	}
}
