package opencast

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks at call sites.
var (
	// ErrCommunication indicates a transport failure or an unexpected HTTP
	// status from the remote platform.
	ErrCommunication = errors.New("opencast: communication error")

	// ErrNotFound indicates the remote platform reported 404 for an entity
	// that was expected to exist.
	ErrNotFound = errors.New("opencast: not found")

	// ErrConflict indicates the remote platform reported 409, typically a
	// duplicate username on account creation.
	ErrConflict = errors.New("opencast: conflict")

	// ErrNotAllowed indicates an operation blocked by local policy, such as
	// archive deletion while the deletion flag is off.
	ErrNotAllowed = errors.New("opencast: operation not allowed")

	// ErrUnsupportedVersion indicates the remote platform version has no
	// known endpoint mapping.
	ErrUnsupportedVersion = errors.New("opencast: unsupported server version")

	// ErrValidation indicates a request that is malformed before it is sent.
	ErrValidation = errors.New("opencast: invalid request")
)

// APIError carries the details of a failed request against the remote
// platform. It wraps one of the sentinel errors above.
type APIError struct {
	Op     string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s returned status %d: %s", e.Err, e.Op, e.Status, truncate(e.Body, 200))
	}
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Op, truncate(e.Body, 200))
}

func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError extracts an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func statusError(op, url string, status int, body []byte) error {
	sentinel := ErrCommunication
	switch status {
	case 404:
		sentinel = ErrNotFound
	case 409:
		sentinel = ErrConflict
	}
	return &APIError{Op: op, URL: url, Status: status, Body: string(body), Err: sentinel}
}

func transportError(op, url string, err error) error {
	return &APIError{Op: op, URL: url, Body: err.Error(), Err: ErrCommunication}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
