package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"cryptotracker/internal/config"
	"cryptotracker/internal/coordinator"
	"cryptotracker/internal/kraken"
	"cryptotracker/internal/portfolio"
	"cryptotracker/internal/ratelimit"
	"cryptotracker/internal/symbols"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout))
}

// runCLI drives one refresh from the command line and returns the process exit code.
// Errors are logged here so deferred cleanup runs before the process exits.
func runCLI(args []string, out io.Writer) int {
	flags := config.Flags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		log.Printf("Failed to parse flags: %v", err)
		return 2
	}

	// Load configuration
	cfg, err := config.Load(flags)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	closeLog, err := setupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Printf("Failed to set up logging: %v", err)
		return 1
	}
	defer closeLog()

	if cfg.Portfolio == "" && flags.NArg() > 0 {
		cfg.Portfolio = flags.Arg(0)
	}
	if cfg.Portfolio == "" {
		log.Printf("No portfolio given: pass --portfolio FILE or a CSV path")
		return 1
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, out); err != nil {
		log.Printf("Refresh failed: %v", err)
		return 1
	}
	return 0
}

// run loads the portfolio, refreshes its prices and prints events as they arrive
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	mapping, err := symbols.LoadFile(cfg.SymbolsFile)
	if err != nil {
		return err
	}

	store := portfolio.NewStore()
	if err := loadPortfolio(store, cfg.Portfolio); err != nil {
		return err
	}
	slog.Info("loaded portfolio", "file", cfg.Portfolio, "rows", store.Len())

	priceFetcher := kraken.NewTickerFetcher(cfg.TickerURL, cfg.FetchTimeout,
		kraken.WithLimiter(ratelimit.New(cfg.RateLimit)))

	coord := coordinator.New(store, symbols.NewResolver(mapping), priceFetcher,
		coordinator.WithWorkers(cfg.Workers),
		coordinator.WithFetchTimeout(cfg.FetchTimeout))

	fmt.Fprintln(out, "Refreshing Kraken prices...")
	fmt.Fprintln(out, "================================================")

	batch := coord.Refresh(ctx)
	for event := range batch.Events() {
		printEvent(out, event)
	}

	summary := batch.Wait()
	fmt.Fprintln(out, "================================================")
	if !summary.Empty() {
		fmt.Fprintf(out, "%d updated, %d failed\n", summary.Succeeded, summary.Failed())
	}

	if cfg.Export != "" {
		if err := exportPortfolio(store, cfg.Export); err != nil {
			return err
		}
		slog.Info("exported portfolio", "file", cfg.Export)
	}

	return nil
}

func printEvent(out io.Writer, event coordinator.Event) {
	switch e := event.(type) {
	case coordinator.EmptyPortfolioEvent:
		fmt.Fprintln(out, "No data found in portfolio")
	case coordinator.BatchStartedEvent:
		fmt.Fprintf(out, "Fetching %d of %d rows\n", e.Tasks, e.Rows)
	case coordinator.RowUpdateEvent:
		fmt.Fprintf(out, "%d %s: %s (total %s)\n", e.Row, e.Symbol, e.Price, e.TotalValue.StringFixed(2))
	case coordinator.RowErrorEvent:
		fmt.Fprintf(out, "%d %s: ERROR (%s) - %s\n", e.Row, e.Symbol, e.Kind, e.Message())
	}
}

func loadPortfolio(store *portfolio.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open portfolio: %w", err)
	}
	defer f.Close()

	rows, err := portfolio.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read portfolio %s: %w", path, err)
	}
	store.Load(rows)
	return nil
}

func exportPortfolio(store *portfolio.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := store.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export portfolio: %w", err)
	}
	return f.Close()
}

// setupLogging installs the default slog logger on stderr and, if path is set, a log file
func setupLogging(level, path string) (func(), error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = func() { f.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return closer, nil
}
