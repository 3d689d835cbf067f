package repos

import (
	"context"
	"errors"

	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

// ErrServiceUnavailable marks failures where the backing store could not be
// reached. Callers may retry.
var ErrServiceUnavailable = errors.New("storage unavailable")

// Scope exposes both repositories bound to one unit of work.
type Scope struct {
	Balances     balances.Balances
	Transactions transactions.Transactions
}

// Store is the persistence boundary used by the ledger. Everything done via
// the Scope handed to WithinTx commits or rolls back together.
type Store interface {
	Balance(ctx context.Context, acct balances.Account) (decimal.Decimal, error)
	FindEntry(ctx context.Context, refID string) (transactions.Entry, error)
	WithinTx(ctx context.Context, fn func(s Scope) error) error
	Ping(ctx context.Context) error
}
