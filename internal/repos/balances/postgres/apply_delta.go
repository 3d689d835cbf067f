package balances

import (
	"context"
	"fmt"

	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/shopspring/decimal"
)

func (r *balancesRepo) ApplyDelta(ctx context.Context, acct balances.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO balances (username, currency, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (username, currency) DO UPDATE
		SET balance    = balances.balance + EXCLUDED.balance,
		    updated_at = now()
		RETURNING balance
	`, acct.Username, acct.Currency, delta).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("apply delta %s to %s: %w", delta, acct, err)
	}

	return balance, nil
}
