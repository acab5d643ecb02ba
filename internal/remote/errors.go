package remote

import (
	"errors"
	"fmt"
	"net/url"
)

// NetworkError wraps a transport-level failure: DNS, connect, timeout.
// Endpoint never carries the query string, which holds the API key.
type NetworkError struct {
	Encoding string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("remote classifier unreachable (%s): %v", e.Encoding, e.Err)
	}
	return fmt.Sprintf("remote classifier unreachable at %s (%s): %v", e.Endpoint, e.Encoding, e.Err)
}

// newNetworkError drops the request URL that net/http puts into transport
// errors, so the API key in its query never reaches logs.
func newNetworkError(encoding, endpoint string, err error) *NetworkError {
	return &NetworkError{Encoding: encoding, Endpoint: redactEndpoint(endpoint), Err: stripURL(err)}
}

func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// redactEndpoint strips user info and query parameters from endpoint.
func redactEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError reports a non-2xx response.
type ServiceError struct {
	Encoding   string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote classifier returned status %d (%s)", e.StatusCode, e.Encoding)
	}
	return fmt.Sprintf("remote classifier returned status %d (%s): %s", e.StatusCode, e.Encoding, e.Body)
}

// MalformedResponseError reports a 2xx body that is not the expected JSON.
type MalformedResponseError struct {
	Encoding string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("remote classifier response malformed (%s): %v", e.Encoding, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
