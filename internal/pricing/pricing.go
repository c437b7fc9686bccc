package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the weight basis a price is quoted in.
type Unit string

// Currency is the quote currency of a derived price.
type Currency string

const (
	UnitOunce Unit = "ounce"
	UnitGram  Unit = "gram"

	CurrencyUSD Currency = "USD"
	CurrencyJOD Currency = "JOD"

	// PurityReference is pure 24-karat gold; purity scales linearly against it.
	PurityReference = 24
)

// GramsPerTroyOunce converts the troy-ounce base quote into grams.
var GramsPerTroyOunce = decimal.NewFromFloat(31.1035)

var allowedPurities = map[int]struct{}{24: {}, 22: {}, 21: {}, 18: {}}

// Status is the position of a derived price relative to a tolerance band.
// The zero value means the subscription has not been evaluated yet.
type Status string

const (
	StatusUnset  Status = ""
	StatusBelow  Status = "below_range"
	StatusWithin Status = "within_range"
	StatusAbove  Status = "above_range"
)

// Breach reports whether the status is outside the tolerance band.
func (s Status) Breach() bool {
	return s == StatusBelow || s == StatusAbove
}

// Convert derives a price from the USD-per-troy-ounce base quote. The three
// factors are independent and multiplicative and are applied in this order:
// unit, currency, purity.
func Convert(basePerOunceUSD decimal.Decimal, unit Unit, currency Currency, usdToLocal decimal.Decimal, purity int) decimal.Decimal {
	price := basePerOunceUSD
	if unit == UnitGram {
		price = price.Div(GramsPerTroyOunce)
	}
	if currency == CurrencyJOD {
		price = price.Mul(usdToLocal)
	}
	if purity != 0 {
		price = price.Mul(decimal.NewFromInt(int64(purity))).Div(decimal.NewFromInt(PurityReference))
	}
	return price
}

// Evaluate places a price relative to a tolerance band. Boundary values are
// inclusive: a price exactly at either threshold is within range. The lower
// comparison is checked first, so a degenerate band still yields a
// deterministic answer.
func Evaluate(price, lower, upper decimal.Decimal) Status {
	if price.LessThan(lower) {
		return StatusBelow
	}
	if price.GreaterThan(upper) {
		return StatusAbove
	}
	return StatusWithin
}

// NormalizeUnit maps free-form input to a supported unit, defaulting to ounce.
func NormalizeUnit(v string) Unit {
	if Unit(v) == UnitGram {
		return UnitGram
	}
	return UnitOunce
}

// NormalizeCurrency maps free-form input to a supported currency, defaulting to USD.
func NormalizeCurrency(v string) Currency {
	if Currency(v) == CurrencyJOD {
		return CurrencyJOD
	}
	return CurrencyUSD
}

// NormalizePurity clamps purity to the allowed karat set, defaulting to 24.
func NormalizePurity(v int) int {
	if _, ok := allowedPurities[v]; ok {
		return v
	}
	return PurityReference
}

// ValidationError reports a rejected registration or query parameter.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ValidateThresholds checks that both thresholds are finite and ordered,
// returning them as decimals.
func ValidateThresholds(lower, upper float64) (decimal.Decimal, decimal.Decimal, error) {
	if math.IsNaN(lower) || math.IsInf(lower, 0) {
		return decimal.Decimal{}, decimal.Decimal{}, &ValidationError{Reason: "lower threshold must be a finite number"}
	}
	if math.IsNaN(upper) || math.IsInf(upper, 0) {
		return decimal.Decimal{}, decimal.Decimal{}, &ValidationError{Reason: "upper threshold must be a finite number"}
	}
	if lower >= upper {
		return decimal.Decimal{}, decimal.Decimal{}, &ValidationError{
			Reason: fmt.Sprintf("lower threshold %v must be less than upper threshold %v", lower, upper),
		}
	}
	return decimal.NewFromFloat(lower), decimal.NewFromFloat(upper), nil
}

// PayloadDecimals is the rounding applied to user-facing prices.
const PayloadDecimals = 4

// Payload is the user-facing view of one derived-price observation.
type Payload struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	Unit         Unit            `json:"unit"`
	Currency     Currency        `json:"currency"`
	Purity       int             `json:"purity"`
	Lower        decimal.Decimal `json:"lower_threshold"`
	Upper        decimal.Decimal `json:"upper_threshold"`
	Status       Status          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
}

// RoundPrice applies the user-facing rounding. Conversion itself never rounds.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PayloadDecimals)
}
