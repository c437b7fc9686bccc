package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"goldwatch/internal/pricing"
)

// Direction labels which threshold a breach crossed.
type Direction string

const (
	DirectionBelow Direction = "below lower threshold"
	DirectionAbove Direction = "above upper threshold"
)

// DirectionFor maps a breach status to its direction label.
func DirectionFor(status pricing.Status) Direction {
	if status == pricing.StatusAbove {
		return DirectionAbove
	}
	return DirectionBelow
}

// Transport delivers one rendered message to an address. The concrete
// protocol behind it is outside the core's concern.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dispatcher turns a breach into a single outbound notification. A nil
// transport makes dispatch a logged no-op so the service stays fully
// functional for monitoring without delivery configured. Send failures are
// logged and swallowed; they never reach the evaluation cycle.
type Dispatcher struct {
	transport Transport
	logger    zerolog.Logger
}

// NewDispatcher constructs a dispatcher over an optional transport.
func NewDispatcher(transport Transport, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		logger:    logger.With().Str("component", "alert_dispatcher").Logger(),
	}
}

// Dispatch sends one notification for the given breach.
func (d *Dispatcher) Dispatch(ctx context.Context, identity string, payload pricing.Payload, direction Direction) {
	if d.transport == nil {
		d.logger.Info().
			Str("identity", identity).
			Str("direction", string(direction)).
			Msg("no transport configured; alert not delivered")
		return
	}

	subject := fmt.Sprintf("Gold price alert: %s", direction)
	body := renderBody(payload, direction)

	if err := d.transport.Send(ctx, identity, subject, body); err != nil {
		d.logger.Error().Err(err).
			Str("identity", identity).
			Str("direction", string(direction)).
			Msg("alert delivery failed")
		return
	}

	d.logger.Info().
		Str("identity", identity).
		Str("direction", string(direction)).
		Str("price", payload.CurrentPrice.String()).
		Msg("alert delivered")
}

func renderBody(p pricing.Payload, direction Direction) string {
	builder := strings.Builder{}
	builder.WriteString("[goldwatch alert]\n")
	builder.WriteString(fmt.Sprintf("Current price: %s %s per %s (purity %dk)\n",
		p.CurrentPrice.StringFixed(pricing.PayloadDecimals), p.Currency, p.Unit, p.Purity))
	builder.WriteString(fmt.Sprintf("Direction: %s\n", direction))
	builder.WriteString(fmt.Sprintf("Band: %s .. %s\n", p.Lower.String(), p.Upper.String()))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", p.Timestamp.UTC().Format(time.RFC3339)))
	return builder.String()
}
