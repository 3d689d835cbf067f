package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/shopspring/decimal"
)

func (r *balancesRepo) Get(ctx context.Context, acct balances.Account) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := r.q.QueryRowContext(ctx, `
		SELECT balance
		FROM balances
		WHERE username = $1
		  AND currency = $2
	`, acct.Username, acct.Currency).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}

		return decimal.Zero, fmt.Errorf("get balance %s: %w", acct, err)
	}

	return balance, nil
}
