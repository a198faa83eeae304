// Package observability provides interfaces for logging and metrics collection
// in the go-acsf library.
//
// The interfaces let callers plug their own logging and metrics backends into
// the Site Factory API client and the task tracker.
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs:
//
//	client, err := sitefactory.NewWithConfig(&sitefactory.ClientConfig{
//		Username: "deployer",
//		APIKey:   apiKey,
//		BaseURL:  sitefactory.BaseURLFor("mygroup", "dev"),
//		Logger:   observability.NewSlogLogger(slog.Default()),
//	})
//
// # MetricsRecorder Interface
//
// The MetricsRecorder interface tracks:
//   - HTTP request count, status codes, and duration
//   - Retry attempts for failed requests
//   - Rate limiting events and wait times
//   - Error occurrences by type
//   - Task status polls and final tracking outcomes
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, no-op implementations are used.
//
// See examples/observability/main.go for a complete example.
package observability
