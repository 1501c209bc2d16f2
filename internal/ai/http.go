package ai

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/biasbench/biasbench/internal/model"
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 2048

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// statusError converts a non-2xx response into a *model.HTTPError.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &model.HTTPError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Body:       strings.TrimSpace(string(body)),
	}
}
