package supabase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransient marks failures worth retrying: network errors, timeouts,
	// 408, 429 and 5xx responses.
	ErrTransient = errors.New("transient data platform failure")

	ErrMissingURL    = errors.New("supabase URL is required")
	ErrMissingAPIKey = errors.New("supabase API key is required")
	ErrMissingTable  = errors.New("table is required")
	ErrJoinRejected  = errors.New("realtime channel join rejected")
	ErrChannelClosed = errors.New("realtime channel closed by server")
)

// APIError is a non-2xx PostgREST response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("supabase error: status %d", e.StatusCode)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}
