package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrNotFound             = errors.New("transaction not found")
)

// Entry is one accepted monetary line item. RefID is unique across the log.
type Entry struct {
	RefID           string
	TxnID           string
	Action          string
	RequestID       string
	Username        string
	ProductID       string
	Currency        string
	Amount          decimal.Decimal
	Status          string
	RoundID         string
	GameCode        string
	PlayInfo        string
	TimestampMillis int64
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	CreatedAt       time.Time
}

// Transactions is the append-mostly audit log. It is never read to compute a
// live balance.
type Transactions interface {
	FindByRefID(ctx context.Context, refID string) (Entry, error)
	Append(ctx context.Context, e Entry) error
}
