package model

import (
	"fmt"
	"time"
)

// HTTPError is returned by the LLM clients when a provider answers with a
// non-2xx status. Body holds a truncated copy of the response payload.
type HTTPError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.StatusCode)
}

// RateLimited reports whether the provider rejected the call with 429.
func (e *HTTPError) RateLimited() bool {
	return e.StatusCode == 429
}
