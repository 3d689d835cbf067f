package balances

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
)

func seedBalance(t *testing.T, db *sql.DB, username, currency, balance string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO balances (username, currency, balance) VALUES ($1, $2, $3)
		ON CONFLICT (username, currency) DO UPDATE SET balance = EXCLUDED.balance
	`, username, currency, balance)
	if err != nil {
		t.Fatalf("seed balance(%s/%s): %v", username, currency, err)
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}

	return d
}
