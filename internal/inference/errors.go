package inference

import (
	"audit-worker/internal/core/utils"
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyResponse = errors.New("provider returned an empty response")

// ProviderError is a non-2xx answer from an inference provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether repeating the request could succeed. Client errors
// are final except for timeouts and rate limiting.
func (e *ProviderError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return false
	default:
		return true
	}
}

func classifyRetry(err error) error {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && !providerErr.Retryable() {
		return utils.Permanent(err)
	}
	return err
}
