package middleware

import (
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/lexfrei/go-acsf/observability"
)

// Observability returns a middleware that logs and records metrics for HTTP requests.
func Observability(logger observability.Logger, metrics observability.MetricsRecorder) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &observabilityTransport{
			next:    next,
			logger:  observability.OrNoop(logger),
			metrics: observability.MetricsOrNoop(metrics),
		}
	}
}

type observabilityTransport struct {
	next    http.RoundTripper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (t *observabilityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	path := normalizePath(req.URL.Path)

	fields := []observability.Field{
		{Key: "method", Value: req.Method},
		{Key: "path", Value: req.URL.Path},
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		fields = append(fields, observability.Field{Key: "request_id", Value: id})
	}

	t.logger.Debug("http request started", fields...)

	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)
	fields = append(fields, observability.Field{Key: "duration", Value: duration})

	if err != nil {
		t.logger.Error("http request failed", append(fields, observability.Field{Key: "error", Value: err.Error()})...)
		t.metrics.RecordError("http_request", "NetworkError")

		//nolint:wrapcheck // Observability middleware logs error but passes it through unchanged
		return nil, err
	}

	fields = append(fields, observability.Field{Key: "status", Value: resp.StatusCode})
	if resp.StatusCode >= http.StatusBadRequest {
		t.logger.Warn("http request completed with error", fields...)
	} else {
		t.logger.Debug("http request completed", fields...)
	}

	t.metrics.RecordHTTPRequest(req.Method, path, resp.StatusCode, duration)

	return resp, nil
}

var (
	// numericIDPattern matches numeric path segments: site, task, collection and backup IDs.
	numericIDPattern = regexp.MustCompile(`/\d+(/|$)`)

	// normalizedPathCache holds already-normalized paths; the endpoint set is small.
	normalizedPathCache sync.Map
)

// normalizePath replaces numeric path segments with ":id" so that metrics
// labels stay bounded.
//
//   - /api/v1/sites/1234/backup   → /api/v1/sites/:id/backup
//   - /api/v1/wip/task/99/status  → /api/v1/wip/task/:id/status
//   - /api/v1/collections/261     → /api/v1/collections/:id
func normalizePath(path string) string {
	if cached, ok := normalizedPathCache.Load(path); ok {
		//nolint:forcetypeassert // Cache only stores strings
		return cached.(string)
	}

	normalized := path
	// Adjacent IDs share a slash, so a single pass can miss every other one.
	for numericIDPattern.MatchString(normalized) {
		normalized = numericIDPattern.ReplaceAllString(normalized, "/:id$1")
	}

	normalizedPathCache.Store(path, normalized)

	return normalized
}
