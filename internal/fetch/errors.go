package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every failure to reach an endpoint at all.
	ErrConnection = errors.New("connection failure")
	// ErrHTTPStatus matches every response with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")
)

// ConnectionError is a transport failure (refused, dns, reset, timeout).
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// StatusError is a response received with a non-2xx status code.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	// Body holds the start of the response body.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
