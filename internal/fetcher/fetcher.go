package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// SpotPriceFetcher retrieves the reference gold price in USD per troy ounce.
type SpotPriceFetcher interface {
	FetchSpot(ctx context.Context) (decimal.Decimal, error)
}

// ExchangeRateFetcher retrieves the USD to local-currency conversion rate.
type ExchangeRateFetcher interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}
