package kraken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cryptotracker/internal/fetcher"
	"cryptotracker/internal/ratelimit"
)

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestNewTickerFetcher(t *testing.T) {
	f := NewTickerFetcher(DefaultTickerURL, 5*time.Second)
	if f == nil {
		t.Fatal("NewTickerFetcher() returned nil")
	}
	if f.client == nil {
		t.Error("client is nil")
	}
	if f.limiter != nil {
		t.Error("limiter should be nil without WithLimiter")
	}

	l := ratelimit.New(1)
	if f := NewTickerFetcher(DefaultTickerURL, 0, WithLimiter(l)); f.limiter != l {
		t.Error("WithLimiter() did not set the limiter")
	}
}

func TestTickerFetcher_Fetch_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pair"); got != "XXBTZUSD" {
			t.Errorf("pair = %q, want XXBTZUSD", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"error": [],
			"result": {
				"XXBTZUSD": {
					"a": ["50001.00000", "1", "1.000"],
					"b": ["49999.00000", "2", "2.000"],
					"c": ["50000.10000", "0.00100000"]
				}
			}
		}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	f := NewTickerFetcher(server.URL, 0)
	price, err := f.Fetch(context.Background(), "XXBTZUSD")
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}

	want := decimal.RequireFromString("50000.1")
	if !price.Equal(want) {
		t.Errorf("Fetch() = %s, want %s", price, want)
	}
}

func TestTickerFetcher_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType fetcher.ErrorType
	}{
		{
			name:     "unknown asset pair",
			status:   http.StatusOK,
			body:     `{"error": ["EQuery:Unknown asset pair"]}`,
			wantType: fetcher.ErrorTypeNoData,
		},
		{
			name:     "pair missing from result",
			status:   http.StatusOK,
			body:     `{"error": [], "result": {"XETHZUSD": {"c": ["3000.0", "1"]}}}`,
			wantType: fetcher.ErrorTypeNoData,
		},
		{
			name:     "missing result",
			status:   http.StatusOK,
			body:     `{"error": []}`,
			wantType: fetcher.ErrorTypeValidation,
		},
		{
			name:     "empty close",
			status:   http.StatusOK,
			body:     `{"error": [], "result": {"XXBTZUSD": {"c": []}}}`,
			wantType: fetcher.ErrorTypeValidation,
		},
		{
			name:     "unparsable price",
			status:   http.StatusOK,
			body:     `{"error": [], "result": {"XXBTZUSD": {"c": ["not_a_number", "1"]}}}`,
			wantType: fetcher.ErrorTypeValidation,
		},
		{
			name:     "negative price",
			status:   http.StatusOK,
			body:     `{"error": [], "result": {"XXBTZUSD": {"c": ["-1.5", "1"]}}}`,
			wantType: fetcher.ErrorTypeValidation,
		},
		{
			name:     "provider rate limit",
			status:   http.StatusOK,
			body:     `{"error": ["EAPI:Rate limit exceeded"]}`,
			wantType: fetcher.ErrorTypeRateLimit,
		},
		{
			name:     "provider unavailable",
			status:   http.StatusOK,
			body:     `{"error": ["EService:Unavailable"]}`,
			wantType: fetcher.ErrorTypeServer,
		},
		{
			name:     "http server error",
			status:   http.StatusInternalServerError,
			body:     `{}`,
			wantType: fetcher.ErrorTypeServer,
		},
		{
			name:     "http too many requests",
			status:   http.StatusTooManyRequests,
			body:     `{}`,
			wantType: fetcher.ErrorTypeRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(tt.status, tt.body))
			defer server.Close()

			f := NewTickerFetcher(server.URL, 0)
			_, err := f.Fetch(context.Background(), "XXBTZUSD")
			if err == nil {
				t.Fatal("Fetch() expected error, got nil")
			}

			var fe *fetcher.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("Fetch() error %T is not a *fetcher.FetchError", err)
			}
			if fe.Type != tt.wantType {
				t.Errorf("Fetch() error type = %q, want %q (%v)", fe.Type, tt.wantType, err)
			}
		})
	}
}

func TestTickerFetcher_Fetch_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"result": [`},
		{"close is not an array", `{"error": [], "result": {"XXBTZUSD": {"c": "oops"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(http.StatusOK, tt.body))
			defer server.Close()

			f := NewTickerFetcher(server.URL, 0)
			_, err := f.Fetch(context.Background(), "XXBTZUSD")
			if err == nil {
				t.Fatal("Fetch() expected error for malformed body, got nil")
			}

			var fe *fetcher.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("Fetch() error %T is not a *fetcher.FetchError", err)
			}
			if fe.Type != fetcher.ErrorTypeValidation {
				t.Errorf("Fetch() error type = %q, want %q (%v)", fe.Type, fetcher.ErrorTypeValidation, err)
			}
		})
	}
}

func TestTickerFetcher_Fetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
	url := server.URL
	server.Close()

	f := NewTickerFetcher(url, 0)
	_, err := f.Fetch(context.Background(), "XXBTZUSD")
	if err == nil {
		t.Fatal("Fetch() expected error for closed server, got nil")
	}

	var fe *fetcher.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error %T is not a *fetcher.FetchError", err)
	}
	if fe.Type != fetcher.ErrorTypeNetwork {
		t.Errorf("Fetch() error type = %q, want %q", fe.Type, fetcher.ErrorTypeNetwork)
	}
}

func TestTickerFetcher_Fetch_Timeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	f := NewTickerFetcher(server.URL, 50*time.Millisecond)
	_, err := f.Fetch(context.Background(), "XXBTZUSD")
	if err == nil {
		t.Fatal("Fetch() expected error for slow server, got nil")
	}
}

func TestTickerFetcher_Fetch_ContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	f := NewTickerFetcher(server.URL, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "XXBTZUSD")
	if err == nil {
		t.Fatal("Fetch() expected error for cancelled context, got nil")
	}
	if got := fetcher.TypeOf(err); got != fetcher.ErrorTypeTimeout {
		t.Errorf("Fetch() error type = %q, want %q", got, fetcher.ErrorTypeTimeout)
	}
}
