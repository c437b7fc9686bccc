package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"goldwatch/internal/alerting"
	"goldwatch/internal/pricing"
	"goldwatch/internal/refdata"
	"goldwatch/internal/registry"
	"goldwatch/internal/storage"
)

// ErrUnavailable signals that reference data is errored or not yet populated.
var ErrUnavailable = errors.New("reference data unavailable")

// Engine runs the subscription evaluation cycle: convert the cached
// reference price per subscription, place it against the tolerance band, and
// dispatch an alert on every status transition into a breach. Alerting is
// edge-triggered: a status identical to the previous one never re-fires, and
// returning to within_range is always silent.
type Engine struct {
	cache      *refdata.Cache
	reg        *registry.Registry
	dispatcher *alerting.Dispatcher
	alerts     storage.AlertStore
	logger     zerolog.Logger
}

// New constructs the engine. alerts may be nil when auditing is disabled.
func New(cache *refdata.Cache, reg *registry.Registry, dispatcher *alerting.Dispatcher, alerts storage.AlertStore, logger zerolog.Logger) *Engine {
	return &Engine{
		cache:      cache,
		reg:        reg,
		dispatcher: dispatcher,
		alerts:     alerts,
		logger:     logger.With().Str("component", "engine").Logger(),
	}
}

// RunCycle evaluates every subscription against the current snapshot. When
// the snapshot is errored or not yet populated the whole cycle is skipped:
// no status writes, no dispatches.
func (e *Engine) RunCycle(ctx context.Context) {
	snap := e.cache.Snapshot()
	if !snap.Usable() {
		e.logger.Debug().Err(snap.Err).Msg("snapshot unusable; evaluation cycle skipped")
		return
	}

	for _, entry := range e.reg.Entries() {
		e.evaluate(ctx, snap, entry)
	}
}

// EvaluateEntry runs one subscription through the same routine the periodic
// cycle uses. Registration calls this synchronously, so a subscriber that is
// already out of range learns about it immediately.
func (e *Engine) EvaluateEntry(ctx context.Context, entry *registry.Entry) {
	snap := e.cache.Snapshot()
	if !snap.Usable() {
		e.logger.Debug().Err(snap.Err).Msg("snapshot unusable; immediate evaluation skipped")
		return
	}
	e.evaluate(ctx, snap, entry)
}

// evaluate holds the entry lock across the full read-evaluate-write-dispatch
// sequence so concurrent evaluations of the same identity cannot interleave.
func (e *Engine) evaluate(ctx context.Context, snap refdata.Snapshot, entry *registry.Entry) {
	entry.Do(func(s *registry.Subscription) {
		raw := pricing.Convert(snap.BasePriceUSD, s.Unit, s.Currency, snap.USDToLocal, s.Purity)
		status := pricing.Evaluate(raw, s.Lower, s.Upper)

		previous := s.LastStatus
		s.LastStatus = status

		if !status.Breach() || status == previous {
			return
		}

		payload := pricing.Payload{
			CurrentPrice: pricing.RoundPrice(raw),
			Unit:         s.Unit,
			Currency:     s.Currency,
			Purity:       s.Purity,
			Lower:        s.Lower,
			Upper:        s.Upper,
			Status:       status,
			Timestamp:    time.Now().UTC(),
		}
		direction := alerting.DirectionFor(status)

		if e.alerts != nil {
			record := storage.AlertRecord{
				Identity:  s.Identity,
				Price:     payload.CurrentPrice,
				Unit:      string(s.Unit),
				Currency:  string(s.Currency),
				Purity:    s.Purity,
				Lower:     s.Lower,
				Upper:     s.Upper,
				Direction: string(direction),
			}
			if _, err := e.alerts.InsertAlert(ctx, record); err != nil {
				e.logger.Error().Err(err).Str("identity", s.Identity).Msg("failed to persist alert record")
			}
		}

		e.dispatcher.Dispatch(ctx, s.Identity, payload, direction)
	})
}

// QuoteOptions select a conversion basis for read-only queries.
type QuoteOptions struct {
	Unit     string
	Currency string
	Purity   int
}

// PriceQuote answers the read-only price query: the derived price on the
// requested basis, without threshold evaluation. Returns ErrUnavailable when
// the cache is errored or unpopulated.
func (e *Engine) PriceQuote(opts QuoteOptions) (pricing.Payload, error) {
	snap := e.cache.Snapshot()
	if !snap.Usable() {
		return pricing.Payload{}, ErrUnavailable
	}

	unit := pricing.NormalizeUnit(opts.Unit)
	currency := pricing.NormalizeCurrency(opts.Currency)
	purity := pricing.NormalizePurity(opts.Purity)

	raw := pricing.Convert(snap.BasePriceUSD, unit, currency, snap.USDToLocal, purity)
	return pricing.Payload{
		CurrentPrice: pricing.RoundPrice(raw),
		Unit:         unit,
		Currency:     currency,
		Purity:       purity,
		Timestamp:    snap.FetchedAt,
	}, nil
}

// StatusQuote answers the agent query: the full payload including the
// tri-state status for an ad-hoc tolerance band. Thresholds must be valid;
// nothing is registered or stored.
func (e *Engine) StatusQuote(opts QuoteOptions, lower, upper float64) (pricing.Payload, error) {
	lo, hi, err := pricing.ValidateThresholds(lower, upper)
	if err != nil {
		return pricing.Payload{}, err
	}

	payload, err := e.PriceQuote(opts)
	if err != nil {
		return pricing.Payload{}, err
	}

	payload.Lower = lo
	payload.Upper = hi
	payload.Status = pricing.Evaluate(payload.CurrentPrice, lo, hi)
	return payload, nil
}
