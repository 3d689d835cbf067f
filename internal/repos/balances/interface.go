package balances

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Account identifies one balance record.
type Account struct {
	Username string
	Currency string
}

func (a Account) String() string { return a.Username + "/" + a.Currency }

// Balances owns the live per-account balance. A missing record reads as zero
// and is created by the first write.
type Balances interface {
	Get(ctx context.Context, acct Account) (decimal.Decimal, error)
	// ApplyDelta adds a signed delta in one atomic step and returns the new balance.
	ApplyDelta(ctx context.Context, acct Account, delta decimal.Decimal) (decimal.Decimal, error)
	// Debit subtracts a positive amount only if the balance covers it,
	// otherwise it returns ErrInsufficientFunds.
	Debit(ctx context.Context, acct Account, amount decimal.Decimal) (decimal.Decimal, error)
}
