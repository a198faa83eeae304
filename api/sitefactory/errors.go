package sitefactory

import (
	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/internal/response"
)

// APIError is a non-success HTTP response. Use errors.As to inspect it.
type APIError = response.APIError

var (
	// ErrNotFound marks errors for resources that do not exist. Callers usually should not retry them.
	ErrNotFound = response.ErrNotFound

	// ErrUnauthorized marks errors caused by rejected credentials.
	ErrUnauthorized = response.ErrUnauthorized

	// ErrEmptyResponse is returned when a successful response carries no body.
	ErrEmptyResponse = response.ErrEmptyResponse

	// ErrTransport marks failures to get any HTTP response at all (DNS, TLS, timeouts, resets).
	ErrTransport = errors.New("transport failure")

	// ErrInvalidID is returned before any request when an identifier is not positive.
	ErrInvalidID = errors.New("identifier must be positive")

	// ErrSchemaViolation is returned when response validation is enabled and a body
	// does not match the bundled OpenAPI document.
	ErrSchemaViolation = errors.New("response does not match schema")
)

// IsNotFound reports whether err was caused by a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err was caused by a 401 or 403 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransport reports whether err happened before any HTTP response was received.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

func checkID(kind string, id int64) error {
	if id <= 0 {
		return errors.Wrapf(ErrInvalidID, "%s %d", kind, id)
	}
	return nil
}
