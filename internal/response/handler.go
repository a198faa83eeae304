// Package response turns raw Site Factory HTTP responses into decoded values or typed errors.
package response

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 << 20

var (
	// ErrNotFound marks API errors for resources that do not exist (HTTP 404).
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized marks API errors caused by bad or insufficient credentials (HTTP 401/403).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmptyResponse is returned when a successful response carries no body.
	ErrEmptyResponse = errors.New("empty response from API")
)

// APIError is a non-success HTTP response from the API.
type APIError struct {
	StatusCode int
	// Message is the server-provided explanation, if the body had one.
	Message string
	// Body is the raw response body, truncated to 512 bytes.
	Body string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "API error: status=" + strconv.Itoa(e.StatusCode) + ": " + e.Message
	}
	return "API error: status=" + strconv.Itoa(e.StatusCode)
}

// Read reads and closes the body of resp. If the status code is not one of
// expected (200 when none are given) it returns an *APIError instead, marked
// with ErrNotFound or ErrUnauthorized where that applies.
func Read(resp *http.Response, expected ...int) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}

	if slices.Contains(expected, resp.StatusCode) {
		return body, nil
	}

	return nil, NewAPIError(resp.StatusCode, body)
}

// NewAPIError builds the error for a non-success response.
func NewAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    extractMessage(body),
		Body:       truncate(string(body), 512),
	}

	switch statusCode {
	case http.StatusNotFound:
		return errors.Mark(apiErr, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Mark(apiErr, ErrUnauthorized)
	default:
		return apiErr
	}
}

// Unmarshal decodes a JSON body into a new T.
func Unmarshal[T any](body []byte, errorMsg string) (*T, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.Wrap(ErrEmptyResponse, errorMsg)
	}

	out := new(T)
	if err := json.Unmarshal(body, out); err != nil {
		return nil, errors.Wrap(err, errorMsg+": invalid JSON")
	}

	return out, nil
}

// extractMessage pulls a human-readable message out of an error body.
// Site Factory uses {"message": "..."}; proxies in front of it sometimes use {"error": "..."}.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

