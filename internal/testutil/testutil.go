package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"cryptotracker/internal/fetcher"
)

// MockFetcher is a mock implementation of the PriceFetcher interface for testing.
// It records every pair it was asked for.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, pair string) (decimal.Decimal, error)

	mu    sync.Mutex
	calls []string
}

// Fetch implements the PriceFetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, pair string) (decimal.Decimal, error) {
	m.mu.Lock()
	m.calls = append(m.calls, pair)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, pair)
	}
	return decimal.Zero, nil
}

// Calls returns the pairs fetched so far, in call order
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// NewMockFetcher creates a mock fetcher answering from fixed prices.
// Pairs listed in errs fail with the given error; unknown pairs fail with a no_data error.
func NewMockFetcher(prices map[string]string, errs map[string]error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, pair string) (decimal.Decimal, error) {
			if err, ok := errs[pair]; ok {
				return decimal.Zero, err
			}
			price, ok := prices[pair]
			if !ok {
				return decimal.Zero, fetcher.NewNoDataError(pair)
			}
			return decimal.RequireFromString(price), nil
		},
	}
}
