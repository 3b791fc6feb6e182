package upstream

import (
	"fmt"
	"net/http"
)

// UpstreamError signals a failed outbound call: either the transport errored
// or the upstream answered with a non-2xx status. StatusCode is zero for
// transport-level failures.
type UpstreamError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream request to %s failed: %s", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream request to %s failed with status code %d", e.URL, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NotFoundError is an UpstreamError raised when the upstream answers 404 for
// a resource. A query for a non-existent id surfaces this to the caller
// instead of a null object.
type NotFoundError struct {
	UpstreamError
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("upstream resource %s not found", e.URL)
}

// DecodeError signals a 2xx upstream response whose body is not the JSON
// shape the gateway expects.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode upstream response from %s: %s", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newStatusError(url string, statusCode int) error {
	if statusCode == http.StatusNotFound {
		return &NotFoundError{UpstreamError{URL: url, StatusCode: statusCode}}
	}
	return &UpstreamError{URL: url, StatusCode: statusCode}
}
