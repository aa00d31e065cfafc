package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned for a 401. The client has already run its
// OnUnauthorized hook (which clears the session) by the time callers see it.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is any other non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Code, http.StatusText(e.Code), e.Body)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// StatusCode extracts the HTTP status of a failed call, or 0 for transport
// errors and anything that is not a StatusError.
func StatusCode(err error) int {
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
