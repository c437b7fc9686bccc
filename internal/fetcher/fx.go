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

// FXOptions parameterise the exchange rate fetcher.
type FXOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// FX fetches the USD conversion rate from an HTTP JSON source.
type FX struct {
	opts    FXOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFX constructs an exchange rate fetcher.
func NewFX(opts FXOptions, logger zerolog.Logger) *FX {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &FX{
		opts:    opts,
		logger:  logger.With().Str("component", "fx_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

type fxResponse struct {
	Base   string   `json:"base"`
	Target string   `json:"target"`
	Rate   *float64 `json:"rate"`
}

// FetchRate retrieves the current USD to local-currency rate.
func (f *FX) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	if f.baseURL == "" {
		return decimal.Decimal{}, errors.New("exchange rate url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, upstreamError("fx", resp.StatusCode, payload)
	}

	var body fxResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode fx payload: %w", err)
	}
	if body.Rate == nil {
		return decimal.Decimal{}, errors.New("fx payload missing rate field")
	}

	rate := decimal.NewFromFloat(*body.Rate)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("fx rate not positive: %s", rate)
	}

	f.logger.Debug().Str("rate", rate.String()).Msg("fx rate fetched")
	return rate, nil
}

type upstreamErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func upstreamError(source string, status int, payload []byte) error {
	var apiErr upstreamErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s api error (%d): %s", source, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", source, status)
}

var _ ExchangeRateFetcher = (*FX)(nil)
