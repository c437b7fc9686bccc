package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SpotOptions parameterise the spot price fetcher.
type SpotOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Spot fetches the gold spot quote from an HTTP JSON source.
type Spot struct {
	opts    SpotOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewSpot constructs a spot price fetcher.
func NewSpot(opts SpotOptions, logger zerolog.Logger) *Spot {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Spot{
		opts:    opts,
		logger:  logger.With().Str("component", "spot_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

type spotResponse struct {
	Price    *float64 `json:"price"`
	Currency string   `json:"currency"`
	Unit     string   `json:"unit"`
}

// FetchSpot retrieves the current USD-per-troy-ounce quote.
func (s *Spot) FetchSpot(ctx context.Context) (decimal.Decimal, error) {
	if s.baseURL == "" {
		return decimal.Decimal{}, errors.New("spot price url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, upstreamError("spot", resp.StatusCode, payload)
	}

	var body spotResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode spot payload: %w", err)
	}
	if body.Price == nil {
		return decimal.Decimal{}, errors.New("spot payload missing price field")
	}

	price := decimal.NewFromFloat(*body.Price)
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("spot price not positive: %s", price)
	}

	s.logger.Debug().Str("price_usd_oz", price.String()).Msg("spot quote fetched")
	return price, nil
}

var _ SpotPriceFetcher = (*Spot)(nil)
