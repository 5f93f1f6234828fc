package policy

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests substitute their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a plain client with the given timeout. Retries are the
// Policy's job, so the client itself never retries.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// ReadResponse drains and closes resp.Body. Any non-2xx status becomes a
// *StatusError so the Policy can decide whether to retry.
func ReadResponse(op string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
