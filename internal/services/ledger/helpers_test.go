package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/fastprodman/seamlesswallet/internal/repos/memstore"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(store repos.Store, opts ...Option) *Service {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithAppendRetry(3, 0),
	}

	return New(store, append(base, opts...)...)
}

func seed(t *testing.T, store repos.Store, username, currency, amount string) {
	t.Helper()

	err := store.WithinTx(t.Context(), func(sc repos.Scope) error {
		_, err := sc.Balances.ApplyDelta(t.Context(), balances.Account{Username: username, Currency: currency}, d(amount))
		return err
	})
	if err != nil {
		t.Fatalf("seed %s/%s: %v", username, currency, err)
	}
}

func balanceOf(t *testing.T, store repos.Store, username, currency string) decimal.Decimal {
	t.Helper()

	bal, err := store.Balance(t.Context(), balances.Account{Username: username, Currency: currency})
	if err != nil {
		t.Fatalf("balance %s/%s: %v", username, currency, err)
	}

	return bal
}

func batch(txns ...Txn) Batch {
	return Batch{
		RequestID:       "req-1",
		ProductID:       "prod-1",
		Username:        "alice",
		Currency:        "USD",
		TimestampMillis: fixedNow.UnixMilli(),
		Txns:            txns,
	}
}

// call resolves op to its Service method.
func call(s *Service, op Operation) func(context.Context, Batch) (Result, error) {
	return map[Operation]func(context.Context, Batch) (Result, error){
		OpCheckBalance:  s.CheckBalance,
		OpGetBalance:    s.GetBalance,
		OpPlaceBets:     s.PlaceBets,
		OpConfirmBets:   s.ConfirmBets,
		OpSettleBets:    s.SettleBets,
		OpCancelBets:    s.CancelBets,
		OpRollbackBets:  s.RollbackBets,
		OpAdjustBets:    s.AdjustBets,
		OpAdjustBalance: s.AdjustBalance,
		OpWinRewards:    s.WinRewards,
		OpPayTips:       s.PayTips,
		OpCancelTips:    s.CancelTips,
		OpVoidSettled:   s.VoidSettled,
		OpUpdateBalance: s.UpdateBalance,
	}[op]
}

// flakyStore fails the next failAppends ledger appends with appendErr.
type flakyStore struct {
	*memstore.Store
	failAppends int
	appendErr   error
}

func (f *flakyStore) WithinTx(ctx context.Context, fn func(repos.Scope) error) error {
	return f.Store.WithinTx(ctx, func(sc repos.Scope) error {
		sc.Transactions = &flakyLog{Transactions: sc.Transactions, store: f}
		return fn(sc)
	})
}

type flakyLog struct {
	transactions.Transactions
	store *flakyStore
}

// Append runs under the memstore mutex, so the counter needs no extra lock.
func (l *flakyLog) Append(ctx context.Context, e transactions.Entry) error {
	if l.store.failAppends > 0 {
		l.store.failAppends--
		return l.store.appendErr
	}

	return l.Transactions.Append(ctx, e)
}

type recordingPublisher struct {
	entries []transactions.Entry
	err     error
}

func (p *recordingPublisher) PublishEntries(_ context.Context, entries []transactions.Entry) error {
	p.entries = append(p.entries, entries...)
	return p.err
}

type stubCache struct {
	seen    bool
	lookErr error
	marked  []string
}

func (c *stubCache) AnySeen(context.Context, []string) (bool, error) { return c.seen, c.lookErr }

func (c *stubCache) MarkSeen(_ context.Context, refIDs []string) error {
	c.marked = append(c.marked, refIDs...)
	return nil
}
