package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"goldwatch/internal/alerting"
	"goldwatch/internal/fetcher"
	"goldwatch/internal/refdata"
	"goldwatch/internal/registry"
	"goldwatch/internal/service"
)

// SimulateOptions describe one synthetic evaluation.
type SimulateOptions struct {
	SpotUSD  decimal.Decimal
	Rate     decimal.Decimal
	Identity string
	Unit     string
	Currency string
	Purity   int
	Lower    float64
	Upper    float64
}

// SimulateAlert evaluates one synthetic subscription against operator-supplied
// reference values, exercising the conversion and dispatch path end to end.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	transport := a.newTransport()
	if transport == nil {
		return errors.New("mail gateway not configured; nothing to simulate")
	}

	cache := refdata.NewCache(
		&staticSpotFetcher{price: opts.SpotUSD},
		&staticRateFetcher{rate: opts.Rate},
		a.Logger,
	)
	cache.Refresh(ctx)

	reg := registry.New()
	entry, err := reg.Upsert(registry.Request{
		Identity: opts.Identity,
		Unit:     opts.Unit,
		Currency: opts.Currency,
		Purity:   opts.Purity,
		Lower:    opts.Lower,
		Upper:    opts.Upper,
	})
	if err != nil {
		return err
	}

	dispatcher := alerting.NewDispatcher(transport, a.Logger)
	engine := service.New(cache, reg, dispatcher, nil, a.Logger)
	engine.EvaluateEntry(ctx, entry)

	sub := entry.View()
	logStatus(a.Logger, sub)
	return nil
}

func logStatus(logger zerolog.Logger, sub registry.Subscription) {
	logger.Info().
		Str("identity", sub.Identity).
		Str("status", string(sub.LastStatus)).
		Msg("simulation complete")
}

type staticSpotFetcher struct {
	price decimal.Decimal
}

func (s *staticSpotFetcher) FetchSpot(ctx context.Context) (decimal.Decimal, error) {
	return s.price, nil
}

type staticRateFetcher struct {
	rate decimal.Decimal
}

func (s *staticRateFetcher) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	return s.rate, nil
}

var _ fetcher.SpotPriceFetcher = (*staticSpotFetcher)(nil)
var _ fetcher.ExchangeRateFetcher = (*staticRateFetcher)(nil)
