package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures one fired alert for auditing.
type AlertRecord struct {
	ID        int64
	Identity  string
	Price     decimal.Decimal
	Unit      string
	Currency  string
	Purity    int
	Lower     decimal.Decimal
	Upper     decimal.Decimal
	Direction string
	CreatedAt time.Time
}
