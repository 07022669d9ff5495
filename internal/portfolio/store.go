package portfolio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrStaleUpdate is returned by ApplyUpdate when the update was computed
// against a table that has since been reloaded, or the row no longer exists.
var ErrStaleUpdate = errors.New("stale update")

// ErrRowOutOfRange is the ErrStaleUpdate returned for a row index outside
// the current table
var ErrRowOutOfRange = fmt.Errorf("%w: row out of range", ErrStaleUpdate)

// Snapshot is an immutable copy of the table at one generation
type Snapshot struct {
	Generation uint64
	Rows       []Row
}

// Store owns the portfolio table. All mutation goes through Load and
// ApplyUpdate; readers take a Snapshot instead of holding the lock.
type Store struct {
	mu         sync.RWMutex
	rows       []Row
	generation uint64
}

// NewStore creates an empty store at generation zero
func NewStore() *Store {
	return &Store{}
}

// Load replaces the whole table and returns the new generation.
// Rows are copied; a row carrying a price has its total value recomputed.
func (s *Store) Load(rows []Row) uint64 {
	next := make([]Row, len(rows))
	for i, r := range rows {
		next[i] = r.normalized()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = next
	s.generation++

	slog.Debug("portfolio loaded", "rows", len(next), "generation", s.generation)
	return s.generation
}

// ApplyUpdate prices row index of the table at generation and returns the updated row.
// Updates addressed to an older generation or to a row outside the current table
// are dropped with ErrStaleUpdate and leave the table untouched.
//
// ErrStaleUpdate marks a dropped result, not a failure: callers log and count
// it, and must not surface it as a row error. errors.Is(err, ErrRowOutOfRange)
// tells a bad index apart from a generation mismatch.
func (s *Store) ApplyUpdate(generation uint64, index int, price decimal.Decimal) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		slog.Debug("dropping stale update", "row", index, "generation", generation, "current", s.generation)
		return Row{}, fmt.Errorf("%w: generation %d, current %d", ErrStaleUpdate, generation, s.generation)
	}
	if index < 0 || index >= len(s.rows) {
		slog.Debug("dropping out of range update", "row", index, "rows", len(s.rows))
		return Row{}, fmt.Errorf("%w: row %d not in [0, %d)", ErrRowOutOfRange, index, len(s.rows))
	}

	s.rows[index] = s.rows[index].WithPrice(price)
	return s.rows[index], nil
}

// Snapshot returns a copy of the current table
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Row, len(s.rows))
	copy(rows, s.rows)
	return Snapshot{Generation: s.generation, Rows: rows}
}

// Generation returns the number of loads performed so far
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Len returns the current number of rows
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Export writes the current snapshot as CSV
func (s *Store) Export(w io.Writer) error {
	return WriteCSV(w, s.Snapshot().Rows)
}
