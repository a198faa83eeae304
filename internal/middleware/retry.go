package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/internal/retry"
	"github.com/lexfrei/go-acsf/observability"
)

// RetryConfig configures the retry middleware.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	// MaxWait caps both the exponential backoff and Retry-After delays. Zero means no cap.
	MaxWait time.Duration
	Logger  observability.Logger
	Metrics observability.MetricsRecorder
}

// Retry returns a middleware that retries failed requests with exponential backoff.
//
// Idempotent requests (GET, PUT, DELETE) are retried on network errors, 5xx and 429.
// POST requests trigger server-side tasks and are only retried on 429, which the
// server rejects before doing any work. 4xx responses are never retried.
//
// This layer only hides transient HTTP failures of individual calls. It is not a
// task-level retry: a task that fails on the server is reported, not restarted.
func Retry(cfg RetryConfig) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &retryTransport{
			next:        next,
			maxRetries:  cfg.MaxRetries,
			initialWait: cfg.InitialWait,
			maxWait:     cfg.MaxWait,
			logger:      observability.OrNoop(cfg.Logger),
			metrics:     observability.MetricsOrNoop(cfg.Metrics),
		}
	}
}

type retryTransport struct {
	next        http.RoundTripper
	maxRetries  int
	initialWait time.Duration
	maxWait     time.Duration
	logger      observability.Logger
	metrics     observability.MetricsRecorder
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	// Buffer the body so it can be replayed
	var bodyBytes []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read request body")
		}
	}

	idempotent := retry.IsIdempotent(req.Method)

	var (
		lastErr  error
		lastResp *http.Response
	)

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.next.RoundTrip(req)

		switch {
		case err != nil && !idempotent:
			// The server may have accepted the request; replaying could start a second task.
			return nil, errors.Wrapf(err, "%s %s failed", req.Method, req.URL.Path)
		case err == nil && !retry.ShouldRetryRequest(req.Method, resp.StatusCode):
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if attempt == t.maxRetries {
			break
		}

		t.logger.Warn("retrying request",
			observability.Field{Key: "attempt", Value: attempt + 1},
			observability.Field{Key: "max_retries", Value: t.maxRetries},
			observability.Field{Key: "method", Value: req.Method},
			observability.Field{Key: "url", Value: req.URL.String()},
		)
		t.metrics.RecordRetry(attempt+1, normalizePath(req.URL.Path))

		waitTime := t.calculateWait(attempt, resp)

		if resp != nil {
			resp.Body.Close()
		}

		timer := time.NewTimer(waitTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Wrap(ctx.Err(), "context canceled during retry wait")
		}
	}

	if lastErr == nil && lastResp != nil {
		return lastResp, nil
	}

	return nil, errors.Wrapf(lastErr, "request failed after %d retries", t.maxRetries)
}

// calculateWait returns initialWait * 2^attempt, or the Retry-After value of a 429.
func (t *retryTransport) calculateWait(attempt int, resp *http.Response) time.Duration {
	wait := t.initialWait * time.Duration(1<<attempt)

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter := retry.ParseRetryAfter(resp.Header.Get("Retry-After")); retryAfter > 0 {
			wait = retryAfter
		}
	}

	if t.maxWait > 0 && wait > t.maxWait {
		wait = t.maxWait
	}

	return wait
}
