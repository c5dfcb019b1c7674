package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ideaforge/domain/core"
)

// classifyTransportErr maps a failed http.Client.Do into the model error
// taxonomy. A deadline hit is a Timeout; everything else on the wire is
// transient.
func classifyTransportErr(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", core.ErrTimeout, provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", core.ErrTimeout, provider, err)
	}
	return core.NewTransientNetworkError(provider, err)
}

// classifyStatus maps a non-2xx provider response. Quota, auth and
// content-policy rejections must not be retried against the same
// provider; server-side errors may be.
func classifyStatus(provider string, status int, body []byte) error {
	switch {
	case status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: %s returned status %d", core.ErrTimeout, provider, status)
	case status >= 500:
		return core.NewTransientNetworkError(provider, fmt.Errorf("status %d: %s", status, truncate(body, 200)))
	default:
		return core.NewProviderRejectedError(provider, status, truncate(body, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
