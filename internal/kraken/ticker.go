package kraken

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"cryptotracker/internal/fetcher"
	"cryptotracker/internal/ratelimit"
)

// DefaultTickerURL is Kraken's public ticker endpoint
const DefaultTickerURL = "https://api.kraken.com/0/public/Ticker"

// TickerInfo is the per-pair payload of the Kraken Ticker endpoint.
// Only the fields used here are decoded.
type TickerInfo struct {
	// Close is the last trade closed: [price, lot volume]
	Close []string `json:"c"`
	// Ask and Bid are [price, whole lot volume, lot volume]
	Ask []string `json:"a"`
	Bid []string `json:"b"`
}

// TickerResponse represents the Kraken Ticker response envelope
type TickerResponse struct {
	Error  []string              `json:"error"`
	Result map[string]TickerInfo `json:"result"`
}

// TickerFetcher fetches last-trade-closed prices from Kraken
type TickerFetcher struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// Option configures a TickerFetcher
type Option func(*TickerFetcher)

// WithLimiter paces every request through l
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(f *TickerFetcher) {
		f.limiter = l
	}
}

// NewTickerFetcher creates a fetcher against the ticker endpoint at tickerURL.
// A zero timeout leaves each request bounded only by its context.
func NewTickerFetcher(tickerURL string, timeout time.Duration, opts ...Option) *TickerFetcher {
	f := &TickerFetcher{
		client: fetcher.NewHTTPClient(tickerURL, timeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the last-trade-closed price for pair
func (f *TickerFetcher) Fetch(ctx context.Context, pair string) (decimal.Decimal, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fetcher.NewTimeoutError(err)
	}

	var result TickerResponse

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("pair", pair).
		SetResult(&result).
		Get("")

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return decimal.Zero, fetcher.NewTimeoutError(ctxErr)
		}
		if resp != nil && resp.RawResponse != nil {
			// the provider answered but the body did not decode
			return decimal.Zero, &fetcher.FetchError{
				Type:       fetcher.ErrorTypeValidation,
				StatusCode: resp.StatusCode(),
				Message:    fmt.Sprintf("failed to decode ticker response for %s", pair),
				Cause:      err,
			}
		}
		return decimal.Zero, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return decimal.Zero, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	slog.Debug("ticker response", "pair", pair, "errors", result.Error, "pairs", len(result.Result))

	if len(result.Error) > 0 {
		return decimal.Zero, classifyProviderError(pair, result.Error)
	}

	return lastClosed(pair, result)
}

// lastClosed extracts result[pair].c[0] from a decoded response
func lastClosed(pair string, resp TickerResponse) (decimal.Decimal, error) {
	if resp.Result == nil {
		return decimal.Zero, fetcher.NewValidationError("result not found in response")
	}

	info, ok := resp.Result[pair]
	if !ok {
		return decimal.Zero, fetcher.NewNoDataError(pair)
	}

	if len(info.Close) == 0 || info.Close[0] == "" {
		return decimal.Zero, fetcher.NewValidationError(fmt.Sprintf("last trade price not found in response for %s", pair))
	}

	price, err := decimal.NewFromString(info.Close[0])
	if err != nil {
		return decimal.Zero, &fetcher.FetchError{
			Type:    fetcher.ErrorTypeValidation,
			Message: fmt.Sprintf("failed to parse price %q for %s", info.Close[0], pair),
			Cause:   err,
		}
	}

	if price.IsNegative() {
		return decimal.Zero, fetcher.NewValidationError(fmt.Sprintf("negative price %s for %s", price, pair))
	}

	return price, nil
}

// classifyProviderError maps Kraken's error strings, e.g. "EQuery:Unknown asset pair",
// onto fetch error categories
func classifyProviderError(pair string, errs []string) *fetcher.FetchError {
	joined := strings.Join(errs, "; ")
	switch {
	case strings.Contains(joined, "Unknown asset pair"):
		return fetcher.NewNoDataError(pair)
	case strings.Contains(joined, "Rate limit") || strings.Contains(joined, "Too many requests"):
		return &fetcher.FetchError{Type: fetcher.ErrorTypeRateLimit, Message: joined}
	case strings.HasPrefix(joined, "EService"):
		return &fetcher.FetchError{Type: fetcher.ErrorTypeServer, Message: joined}
	default:
		return fetcher.NewClientError(0, joined)
	}
}
