package observability

import "time"

// MetricsRecorder is an interface for recording client metrics.
// Implementations can forward to any metrics backend (Prometheus, StatsD, etc.).
type MetricsRecorder interface {
	// RecordHTTPRequest records an HTTP request with method, normalized path, status code, and duration.
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)

	// RecordRetry records a retry attempt for an endpoint.
	RecordRetry(attempt int, endpoint string)

	// RecordRateLimit records a rate limit wait event.
	RecordRateLimit(endpoint string, wait time.Duration)

	// RecordError records an error occurrence.
	RecordError(operation, errorType string)

	// RecordTaskPoll records one status poll of a long-running task and the state it reported.
	RecordTaskPoll(state string)

	// RecordTaskOutcome records how tracking of a task ended and how many polls it took.
	RecordTaskOutcome(outcome string, attempts int)
}

type noopMetricsRecorder struct{}

// NoopMetricsRecorder returns a metrics recorder that does nothing.
//
//nolint:ireturn // Factory function must return interface for dependency injection pattern
func NoopMetricsRecorder() MetricsRecorder {
	return noopMetricsRecorder{}
}

func (noopMetricsRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
func (noopMetricsRecorder) RecordRetry(int, string)                              {}
func (noopMetricsRecorder) RecordRateLimit(string, time.Duration)                {}
func (noopMetricsRecorder) RecordError(string, string)                           {}
func (noopMetricsRecorder) RecordTaskPoll(string)                                {}
func (noopMetricsRecorder) RecordTaskOutcome(string, int)                        {}

// MetricsOrNoop returns metrics, or the noop recorder when metrics is nil.
//
//nolint:ireturn // Returns the MetricsRecorder interface
func MetricsOrNoop(metrics MetricsRecorder) MetricsRecorder {
	if metrics == nil {
		return NoopMetricsRecorder()
	}
	return metrics
}
