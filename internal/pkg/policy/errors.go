package policy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// StatusError is returned when an upstream API answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	if e.Op == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, body)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Op, e.StatusCode, body)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// TransportError is a failed HTTP round trip with the request URL dropped,
// since several upstream APIs carry credentials in the query string.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// WrapTransport annotates an error returned by HTTPDoer.Do. A *url.Error is
// replaced by its cause so the URL never reaches logs or callers.
func WrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return &TransportError{Op: op, Err: err}
}

// IsRetryable reports whether err is transient: a network-level failure or a
// response status of 429, 500, 502, 503 or 504.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return isRetryableStatus(se.StatusCode)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isRetryableStatus returns true if the HTTP status code indicates a
// transient server error that should be retried.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
