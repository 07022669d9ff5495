package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

// NewHTTPClient creates a new HTTP client for a price provider.
// The client never retries: each fetch is a single best-effort call and retry
// policy, if any, belongs to whoever issues the whole refresh.
// A zero timeout leaves requests bounded only by their context.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	slog.Debug("http client created", "base_url", baseURL, "timeout", timeout)
	return client
}
