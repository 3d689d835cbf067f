package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/seamlesswallet/internal/infra/pgutils"
	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	balancespg "github.com/fastprodman/seamlesswallet/internal/repos/balances/postgres"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	transactionspg "github.com/fastprodman/seamlesswallet/internal/repos/transactions/postgres"
	"github.com/shopspring/decimal"
)

var _ repos.Store = (*Store)(nil)

type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Balance(ctx context.Context, acct balances.Account) (decimal.Decimal, error) {
	bal, err := balancespg.New(s.db).Get(ctx, acct)
	return bal, classify(err)
}

func (s *Store) FindEntry(ctx context.Context, refID string) (transactions.Entry, error) {
	e, err := transactionspg.New(s.db).FindByRefID(ctx, refID)
	return e, classify(err)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos.Scope) error) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(repos.Scope{
			Balances:     balancespg.New(tx),
			Transactions: transactionspg.New(tx),
		})
	})

	return classify(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx))
}

func classify(err error) error {
	if err != nil && pgutils.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", repos.ErrServiceUnavailable, err)
	}

	return err
}
