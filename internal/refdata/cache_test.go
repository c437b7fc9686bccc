package refdata

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type staticSpot struct {
	price decimal.Decimal
	err   error
}

func (s *staticSpot) FetchSpot(ctx context.Context) (decimal.Decimal, error) {
	return s.price, s.err
}

type staticFX struct {
	rate decimal.Decimal
	err  error
}

func (s *staticFX) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	return s.rate, s.err
}

func TestSnapshotUnusableBeforeFirstRefresh(t *testing.T) {
	c := NewCache(&staticSpot{}, &staticFX{}, zerolog.Nop())
	if c.Snapshot().Usable() {
		t.Fatal("empty cache must not be usable")
	}
}

func TestRefreshSuccessReplacesSnapshot(t *testing.T) {
	spot := &staticSpot{price: decimal.NewFromInt(2000)}
	fx := &staticFX{rate: decimal.NewFromFloat(0.71)}
	c := NewCache(spot, fx, zerolog.Nop())

	c.Refresh(context.Background())

	snap := c.Snapshot()
	if !snap.Usable() {
		t.Fatalf("snapshot should be usable after successful refresh: %+v", snap)
	}
	if !snap.BasePriceUSD.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("unexpected base price %s", snap.BasePriceUSD)
	}
	if !snap.USDToLocal.Equal(decimal.NewFromFloat(0.71)) {
		t.Fatalf("unexpected rate %s", snap.USDToLocal)
	}
	if snap.FetchedAt.IsZero() {
		t.Fatal("FetchedAt should be set")
	}
}

func TestRefreshFailureRetainsValuesAndSetsError(t *testing.T) {
	spot := &staticSpot{price: decimal.NewFromInt(2000)}
	fx := &staticFX{rate: decimal.NewFromFloat(0.71)}
	c := NewCache(spot, fx, zerolog.Nop())

	c.Refresh(context.Background())

	fx.err = errors.New("fx upstream down")
	c.Refresh(context.Background())

	snap := c.Snapshot()
	if snap.Usable() {
		t.Fatal("errored snapshot must not be usable")
	}
	if snap.Err == nil {
		t.Fatal("snapshot error should be recorded")
	}
	if !snap.BasePriceUSD.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("previous base price should be retained, got %s", snap.BasePriceUSD)
	}

	// A later successful refresh clears the error.
	fx.err = nil
	fx.rate = decimal.NewFromFloat(0.72)
	c.Refresh(context.Background())

	snap = c.Snapshot()
	if !snap.Usable() {
		t.Fatalf("snapshot should recover after successful refresh: %v", snap.Err)
	}
	if !snap.USDToLocal.Equal(decimal.NewFromFloat(0.72)) {
		t.Fatalf("rate should be updated, got %s", snap.USDToLocal)
	}
}

func TestRefreshSpotFailureWins(t *testing.T) {
	spot := &staticSpot{err: errors.New("spot upstream down")}
	fx := &staticFX{rate: decimal.NewFromFloat(0.71)}
	c := NewCache(spot, fx, zerolog.Nop())

	c.Refresh(context.Background())
	if c.Snapshot().Usable() {
		t.Fatal("snapshot must be unusable when the spot fetch fails")
	}
}
