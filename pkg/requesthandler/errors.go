package requesthandler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork = errors.New("network request failed")
	ErrDecode  = errors.New("response could not be decoded")
)

// StatusError is returned for any non 2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response status %d", e.StatusCode)
	}

	return fmt.Sprintf("unexpected response status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err is a 404 StatusError
func IsNotFound(err error) bool {
	var statusError *StatusError
	return errors.As(err, &statusError) && statusError.StatusCode == http.StatusNotFound
}
