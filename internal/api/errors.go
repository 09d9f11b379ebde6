package api

import (
	"errors"
	"net/http"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string // e.g. "500 Internal Server Error"
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return e.Status + ": " + e.Body
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
