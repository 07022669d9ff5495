package fetcher

import "github.com/shopspring/decimal"

// Result represents the outcome of a single task's fetch.
// It's sent through a channel from worker goroutines to the coordinating
// goroutine, which merges it into the portfolio store.
type Result struct {
	// Row is the index of the portfolio row the fetch was issued for
	Row int

	// Symbol and Pair identify what was fetched, for logging and events
	Symbol string
	Pair   string

	// Price is the fetched last-trade-closed price
	Price decimal.Decimal

	// Error contains any error that occurred during the fetch operation.
	// If Error is not nil, Price should be considered invalid.
	Error error
}
