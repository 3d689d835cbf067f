// Package memstore keeps balances and ledger entries in process memory.
// Units of work are serialized by a single mutex and staged until commit.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

var _ repos.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	balances map[balances.Account]decimal.Decimal
	entries  map[string]transactions.Entry
	now      func() time.Time
}

func New() *Store {
	return &Store{
		balances: make(map[balances.Account]decimal.Decimal),
		entries:  make(map[string]transactions.Entry),
		now:      time.Now,
	}
}

func (s *Store) Balance(ctx context.Context, acct balances.Account) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.balances[acct], nil
}

func (s *Store) FindEntry(ctx context.Context, refID string) (transactions.Entry, error) {
	if err := ctx.Err(); err != nil {
		return transactions.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[refID]
	if !ok {
		return transactions.Entry{}, transactions.ErrNotFound
	}

	return e, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos.Scope) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := &unit{
		store:    s,
		balances: make(map[balances.Account]decimal.Decimal),
		entries:  make(map[string]transactions.Entry),
	}

	err := fn(repos.Scope{Balances: u, Transactions: u})
	if err != nil {
		return err
	}

	for acct, bal := range u.balances {
		s.balances[acct] = bal
	}
	for ref, e := range u.entries {
		s.entries[ref] = e
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// unit stages writes of one WithinTx call. The store mutex is held for its
// whole lifetime.
type unit struct {
	store    *Store
	balances map[balances.Account]decimal.Decimal
	entries  map[string]transactions.Entry
}

var (
	_ balances.Balances         = (*unit)(nil)
	_ transactions.Transactions = (*unit)(nil)
)

func (u *unit) Get(_ context.Context, acct balances.Account) (decimal.Decimal, error) {
	return u.balance(acct), nil
}

func (u *unit) balance(acct balances.Account) decimal.Decimal {
	if bal, ok := u.balances[acct]; ok {
		return bal
	}

	return u.store.balances[acct]
}

func (u *unit) ApplyDelta(_ context.Context, acct balances.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	next := u.balance(acct).Add(delta)
	u.balances[acct] = next

	return next, nil
}

func (u *unit) Debit(_ context.Context, acct balances.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("debit %s from %s: amount must be positive", amount, acct)
	}

	cur := u.balance(acct)
	if cur.LessThan(amount) {
		return decimal.Zero, balances.ErrInsufficientFunds
	}

	next := cur.Sub(amount)
	u.balances[acct] = next

	return next, nil
}

func (u *unit) FindByRefID(_ context.Context, refID string) (transactions.Entry, error) {
	if e, ok := u.entries[refID]; ok {
		return e, nil
	}
	if e, ok := u.store.entries[refID]; ok {
		return e, nil
	}

	return transactions.Entry{}, transactions.ErrNotFound
}

func (u *unit) Append(_ context.Context, e transactions.Entry) error {
	_, staged := u.entries[e.RefID]
	_, committed := u.store.entries[e.RefID]
	if staged || committed {
		return transactions.ErrDuplicateTransaction
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = u.store.now().UTC()
	}
	u.entries[e.RefID] = e

	return nil
}
