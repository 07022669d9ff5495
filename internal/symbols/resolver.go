package symbols

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a symbol has no provider pair in the mapping
var ErrNotFound = errors.New("symbol not found in mapping")

// ResolutionError reports a symbol that could not be mapped to a provider pair
type ResolutionError struct {
	Symbol string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %s", e.Symbol, ErrNotFound)
}

// Unwrap lets errors.Is match ErrNotFound
func (e *ResolutionError) Unwrap() error {
	return ErrNotFound
}

// Mapping is an immutable symbol -> provider pair table.
// Keys are stored uppercased.
type Mapping struct {
	pairs map[string]string
}

// NewMapping copies pairs into a Mapping, normalizing keys to uppercase.
// Entries with an empty pair are skipped.
func NewMapping(pairs map[string]string) Mapping {
	m := Mapping{pairs: make(map[string]string, len(pairs))}
	for sym, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		m.pairs[normalize(sym)] = pair
	}
	return m
}

// Len returns the number of mapped symbols
func (m Mapping) Len() int {
	return len(m.pairs)
}

// Resolver looks up provider pairs for portfolio symbols
type Resolver struct {
	mapping Mapping
}

// NewResolver creates a Resolver over mapping
func NewResolver(mapping Mapping) *Resolver {
	return &Resolver{mapping: mapping}
}

// Resolve returns the provider pair for symbol. The lookup is case-insensitive.
// Unknown symbols yield a *ResolutionError.
func (r *Resolver) Resolve(symbol string) (string, error) {
	if pair, ok := r.mapping.pairs[normalize(symbol)]; ok {
		return pair, nil
	}
	return "", &ResolutionError{Symbol: symbol}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
