package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceFetcher is the core interface that price providers must implement.
// A PriceFetcher resolves the last traded price of a single provider pair.
type PriceFetcher interface {
	// Fetch retrieves the last-trade-closed price for pair.
	// The returned price is never negative. Errors are *FetchError values.
	Fetch(ctx context.Context, pair string) (decimal.Decimal, error)
}
