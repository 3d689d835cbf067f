package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/shopspring/decimal"
)

func (r *balancesRepo) Debit(ctx context.Context, acct balances.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("debit %s from %s: amount must be positive", amount, acct)
	}

	var balance decimal.Decimal

	err := r.q.QueryRowContext(ctx, `
		UPDATE balances
		SET balance    = balance - $3,
		    updated_at = now()
		WHERE username = $1
		  AND currency = $2
		  AND balance >= $3
		RETURNING balance
	`, acct.Username, acct.Currency, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, balances.ErrInsufficientFunds
		}

		return decimal.Zero, fmt.Errorf("debit %s from %s: %w", amount, acct, err)
	}

	return balance, nil
}
