package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"cryptotracker/internal/fetcher"
	"cryptotracker/internal/portfolio"
	"cryptotracker/internal/symbols"
)

// MaxWorkers caps concurrent provider calls regardless of host parallelism
const MaxWorkers = 8

// Coordinator refreshes portfolio prices. Each Refresh resolves every row's
// symbol, fetches resolvable rows on a bounded pool and merges prices into the
// store as they arrive.
type Coordinator struct {
	store    *portfolio.Store
	resolver *symbols.Resolver
	fetcher  fetcher.PriceFetcher

	workers      int
	fetchTimeout time.Duration

	// slots bounds in-flight fetches across overlapping batches
	slots chan struct{}
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithWorkers sets the worker count. Zero or less means available parallelism.
// The count is capped at MaxWorkers.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithFetchTimeout bounds each individual fetch. Zero means no timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.fetchTimeout = d
	}
}

// New creates a new Coordinator over store
func New(store *portfolio.Store, resolver *symbols.Resolver, f fetcher.PriceFetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		resolver: resolver,
		fetcher:  f,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.workers = poolSize(c.workers)
	c.slots = make(chan struct{}, c.workers)

	slog.Info("multithreading with maximum workers", "workers", c.workers, "fetch_timeout", c.fetchTimeout)
	return c
}

// Workers returns the size of the worker pool
func (c *Coordinator) Workers() int {
	return c.workers
}

func poolSize(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, MaxWorkers))
}

// Refresh starts a new batch over a snapshot of the store and returns immediately.
//
// Resolution failures are reported before any fetch starts. Prices are applied
// to the store as each fetch completes. A batch never fails as a whole: every
// error is scoped to its row. Issuing a new Refresh does not cancel earlier
// batches; their results are dropped if the table was reloaded meanwhile.
// Cancelling ctx fails the batch's outstanding fetches.
func (c *Coordinator) Refresh(ctx context.Context) *Batch {
	snap := c.store.Snapshot()
	b := newBatch(uuid.NewString(), snap.Generation, len(snap.Rows))
	logger := slog.With("batch", b.ID, "generation", b.Generation)

	if len(snap.Rows) == 0 {
		logger.Info("no rows to refresh")
		b.emit(EmptyPortfolioEvent{Batch: b.ID})
		b.finish()
		return b
	}

	var (
		tasks      []Task
		unresolved []RowErrorEvent
	)
	for i, row := range snap.Rows {
		pair, err := c.resolver.Resolve(row.Symbol)
		if err != nil {
			logger.Warn("symbol not resolvable", "row", i, "symbol", row.Symbol, "error", err)
			unresolved = append(unresolved, RowErrorEvent{
				Batch:  b.ID,
				Row:    i,
				Symbol: row.Symbol,
				Kind:   KindResolution,
				Err:    err,
			})
			continue
		}
		tasks = append(tasks, Task{Row: i, Symbol: row.Symbol, Pair: pair})
	}

	b.summary.Tasks = len(tasks)
	b.summary.Unresolved = len(unresolved)

	logger.Debug("refreshing prices", "rows", len(snap.Rows), "tasks", len(tasks))
	b.emit(BatchStartedEvent{
		Batch:      b.ID,
		Generation: b.Generation,
		Rows:       len(snap.Rows),
		Tasks:      len(tasks),
	})
	for _, e := range unresolved {
		b.emit(e)
	}

	go c.run(ctx, b, tasks, logger)
	return b
}

// run dispatches tasks onto the pool and merges their results until all are terminal
func (c *Coordinator) run(ctx context.Context, b *Batch, tasks []Task, logger *slog.Logger) {
	results := make(chan fetcher.Result, len(tasks))

	go func() {
		p := pool.New().WithMaxGoroutines(c.workers)
		for _, t := range tasks {
			p.Go(func() {
				results <- c.execute(ctx, t)
			})
		}
		p.Wait()
		close(results)
	}()

	for r := range results {
		c.merge(b, r, logger)
	}

	logger.Info("refresh finished",
		"tasks", b.summary.Tasks,
		"succeeded", b.summary.Succeeded,
		"failed", b.summary.Failed(),
		"dropped", b.summary.Dropped)

	b.emit(BatchFinishedEvent{
		Batch:     b.ID,
		Succeeded: b.summary.Succeeded,
		Failed:    b.summary.Failed(),
		Dropped:   b.summary.Dropped,
	})
	b.finish()
}

// execute runs one fetch once a worker slot is free
func (c *Coordinator) execute(ctx context.Context, t Task) fetcher.Result {
	result := fetcher.Result{Row: t.Row, Symbol: t.Symbol, Pair: t.Pair}

	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		result.Error = fetcher.NewTimeoutError(ctx.Err())
		return result
	}
	defer func() { <-c.slots }()

	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	result.Price, result.Error = c.fetcher.Fetch(ctx, t.Pair)
	return result
}

// merge applies one result to the store and emits its event
func (c *Coordinator) merge(b *Batch, r fetcher.Result, logger *slog.Logger) {
	if r.Error != nil {
		logger.Warn("price fetch failed",
			"row", r.Row,
			"symbol", r.Symbol,
			"pair", r.Pair,
			"error_type", fetcher.TypeOf(r.Error),
			"error", r.Error)
		b.summary.FetchFailed++
		b.emit(RowErrorEvent{
			Batch:  b.ID,
			Row:    r.Row,
			Symbol: r.Symbol,
			Pair:   r.Pair,
			Kind:   KindFetch,
			Err:    r.Error,
		})
		return
	}

	row, err := c.store.ApplyUpdate(b.Generation, r.Row, r.Price)
	if err != nil {
		logger.Debug("stale price dropped", "row", r.Row, "symbol", r.Symbol,
			"reason", dropReason(err), "error", err)
		b.summary.Dropped++
		return
	}

	logger.Debug("price updated", "row", r.Row, "symbol", r.Symbol, "pair", r.Pair, "price", row.Price.Decimal)
	b.summary.Succeeded++
	b.emit(RowUpdateEvent{
		Batch:      b.ID,
		Row:        r.Row,
		Symbol:     r.Symbol,
		Price:      row.Price.Decimal,
		TotalValue: row.TotalValue.Decimal,
	})
}

// dropReason names why the store refused a price
func dropReason(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrRowOutOfRange):
		return "out_of_range"
	case errors.Is(err, portfolio.ErrStaleUpdate):
		return "generation"
	default:
		return "unknown"
	}
}
