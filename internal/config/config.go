package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the crypto tracker.
type Config struct {
	// Kraken public ticker endpoint (configurable for testing)
	TickerURL string `mapstructure:"ticker_url"`

	// INI file holding the [KrakenSymbols] mapping
	SymbolsFile string `mapstructure:"symbols_file"`

	// Refresh tuning
	Workers      int           `mapstructure:"workers"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Portfolio CSV to load and, optionally, where to export the refreshed table
	Portfolio string `mapstructure:"portfolio"`
	Export    string `mapstructure:"export"`
}

// Flags returns the command line flags understood by Load
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cryptotracker", pflag.ContinueOnError)
	fs.StringP("portfolio", "p", "", "portfolio CSV to load")
	fs.StringP("export", "o", "", "write the refreshed portfolio to this CSV")
	fs.String("symbols-file", "", "INI file with the [KrakenSymbols] mapping")
	fs.Int("workers", 0, "concurrent price fetches (0 = available parallelism)")
	fs.Duration("fetch-timeout", 0, "timeout for each price fetch (0 = none)")
	fs.Float64("rate-limit", 0, "maximum requests per second to the price provider (0 = unlimited)")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-file", "", "also write logs to this file")
	return fs
}

// Load reads configuration from defaults, an optional config file, environment
// variables and flags, in increasing order of precedence. flags may be nil.
//
// Environment variables:
//   - CRYPTOTRACKER_TICKER_URL (optional, defaults to Kraken production)
//   - CRYPTOTRACKER_SYMBOLS_FILE (optional, defaults to config.ini)
//   - CRYPTOTRACKER_WORKERS, CRYPTOTRACKER_FETCH_TIMEOUT, CRYPTOTRACKER_RATE_LIMIT
//   - CRYPTOTRACKER_LOG_LEVEL, CRYPTOTRACKER_LOG_FILE
//   - CRYPTOTRACKER_PORTFOLIO, CRYPTOTRACKER_EXPORT
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("CRYPTOTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("ticker_url", "https://api.kraken.com/0/public/Ticker")
	v.SetDefault("symbols_file", "config.ini")
	v.SetDefault("workers", 0)
	v.SetDefault("fetch_timeout", time.Duration(0))
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("portfolio", "")
	v.SetDefault("export", "")

	// Optionally read from config file if it exists
	v.SetConfigName("cryptotracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.cryptotracker")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for key, flag := range map[string]string{
			"portfolio":     "portfolio",
			"export":        "export",
			"symbols_file":  "symbols-file",
			"workers":       "workers",
			"fetch_timeout": "fetch-timeout",
			"rate_limit":    "rate-limit",
			"log_level":     "log-level",
			"log_file":      "log-file",
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var problems []string
	if c.TickerURL == "" {
		problems = append(problems, "ticker_url is required")
	}
	if c.Workers < 0 {
		problems = append(problems, "workers must not be negative")
	}
	if c.FetchTimeout < 0 {
		problems = append(problems, "fetch_timeout must not be negative")
	}
	if c.RateLimit < 0 {
		problems = append(problems, "rate_limit must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
