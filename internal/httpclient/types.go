package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned for non-200 upstream responses
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
	// Body holds the start of the response body, if any
	Body string
}

// NewHTTPError creates an HTTPError
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// IsStatus reports whether err is an HTTPError with the given status code
func IsStatus(err error, statusCode int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == statusCode
}

// IsRateLimited reports whether err is an upstream rate limit response
func IsRateLimited(err error) bool {
	return IsStatus(err, http.StatusTooManyRequests)
}
