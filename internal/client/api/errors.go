package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps network-level failures (unreachable host, timeout).
	ErrTransport = errors.New("transport error")
	// ErrMalformedResponse wraps bodies that do not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server error: %d %s", e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with one of the given codes.
func IsStatus(err error, codes ...int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code == c {
			return true
		}
	}
	return false
}
