package refdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"goldwatch/internal/fetcher"
)

// Snapshot is an immutable point-in-time copy of the reference data. When Err
// is set the numeric values are the last successful fetch and must not be
// used for conversion.
type Snapshot struct {
	BasePriceUSD decimal.Decimal // USD per troy ounce
	USDToLocal   decimal.Decimal
	FetchedAt    time.Time
	Err          error
}

// Usable reports whether the snapshot carries values safe to convert with.
func (s Snapshot) Usable() bool {
	return s.Err == nil && !s.FetchedAt.IsZero()
}

// Cache holds the most recent reference data. Refresh is the single writer;
// readers get a copy of the snapshot.
type Cache struct {
	spot   fetcher.SpotPriceFetcher
	fx     fetcher.ExchangeRateFetcher
	logger zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewCache constructs a cache over the two upstream fetchers.
func NewCache(spot fetcher.SpotPriceFetcher, fx fetcher.ExchangeRateFetcher, logger zerolog.Logger) *Cache {
	return &Cache{
		spot:   spot,
		fx:     fx,
		logger: logger.With().Str("component", "refdata_cache").Logger(),
	}
}

// Refresh fetches both upstream values concurrently and replaces the snapshot
// once both have completed. Either failure keeps the previous values and
// marks the snapshot errored; upstream errors never propagate to the caller.
func (c *Cache) Refresh(ctx context.Context) {
	var (
		wg      sync.WaitGroup
		price   decimal.Decimal
		rate    decimal.Decimal
		spotErr error
		fxErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		price, spotErr = c.spot.FetchSpot(ctx)
	}()
	go func() {
		defer wg.Done()
		rate, fxErr = c.fx.FetchRate(ctx)
	}()
	wg.Wait()

	err := spotErr
	if err == nil {
		err = fxErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.snap.Err = err
		c.logger.Error().Err(err).Msg("reference data refresh failed; snapshot marked unusable")
		return
	}

	c.snap = Snapshot{
		BasePriceUSD: price,
		USDToLocal:   rate,
		FetchedAt:    time.Now().UTC(),
	}
	c.logger.Info().
		Str("base_price_usd_oz", price.String()).
		Str("usd_to_local", rate.String()).
		Msg("reference data refreshed")
}

// Snapshot returns the current state by value.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
