package tracker

import (
	"fmt"
	"net/http"
)

// AuthError reports that no usable credential could be obtained from the
// session cookie. It is never retried automatically.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConfigError reports a static misconfiguration: the API host has no known
// front URL.
type ConfigError struct {
	Host string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("front for host %s not found", e.Host)
}

// FetchError reports a failed issue, comment, user or page request.
// StatusCode is zero when the failure happened before a response arrived.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: API error %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Unauthorized reports whether the API rejected the credential.
func (e *FetchError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
