package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSpotFetchMissingURL(t *testing.T) {
	s := NewSpot(SpotOptions{}, noopLogger())
	if _, err := s.FetchSpot(context.Background()); err == nil {
		t.Fatal("missing base url should return an error")
	}
}

func TestSpotFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "upstream down"})
	}))
	defer srv.Close()

	s := NewSpot(SpotOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := s.FetchSpot(context.Background()); err == nil {
		t.Fatal("HTTP 502 should return an error")
	}
}

func TestSpotFetchMissingPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"currency": "USD", "unit": "oz"})
	}))
	defer srv.Close()

	s := NewSpot(SpotOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := s.FetchSpot(context.Background()); err == nil {
		t.Fatal("payload without a price field should return an error")
	}
}

func TestSpotFetchNonNumericPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price":"high","currency":"USD"}`))
	}))
	defer srv.Close()

	s := NewSpot(SpotOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := s.FetchSpot(context.Background()); err == nil {
		t.Fatal("non-numeric price should return an error")
	}
}

func TestSpotFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"price": 2031.55, "currency": "USD", "unit": "oz"})
	}))
	defer srv.Close()

	s := NewSpot(SpotOptions{BaseURL: srv.URL, Timeout: time.Second, UserAgent: "test"}, noopLogger())
	price, err := s.FetchSpot(context.Background())
	if err != nil {
		t.Fatalf("successful response should not error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(2031.55)) {
		t.Fatalf("expected 2031.55, got %s", price)
	}
}
