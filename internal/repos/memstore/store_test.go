package memstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

var acct = balances.Account{Username: "alice", Currency: "USD"}

func TestStore_CommitAndRollback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fail       bool
		wantBal    int64
		wantLogged bool
	}{
		{name: "commit", wantBal: 40, wantLogged: true},
		{name: "rollback", fail: true, wantBal: 0, wantLogged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New()
			boom := errors.New("boom")

			err := s.WithinTx(t.Context(), func(sc repos.Scope) error {
				if _, err := sc.Balances.ApplyDelta(t.Context(), acct, decimal.NewFromInt(40)); err != nil {
					return err
				}
				if err := sc.Transactions.Append(t.Context(), transactions.Entry{RefID: "r1"}); err != nil {
					return err
				}
				if tt.fail {
					return boom
				}
				return nil
			})
			if tt.fail != errors.Is(err, boom) {
				t.Fatalf("unexpected error: %v", err)
			}

			bal, _ := s.Balance(t.Context(), acct)
			if !bal.Equal(decimal.NewFromInt(tt.wantBal)) {
				t.Fatalf("balance: want %d, got %s", tt.wantBal, bal)
			}

			_, err = s.FindEntry(t.Context(), "r1")
			if tt.wantLogged != (err == nil) {
				t.Fatalf("entry presence mismatch: %v", err)
			}
		})
	}
}

func TestStore_DebitAndDuplicates(t *testing.T) {
	t.Parallel()

	s := New()

	err := s.WithinTx(t.Context(), func(sc repos.Scope) error {
		if _, err := sc.Balances.Debit(t.Context(), acct, decimal.NewFromInt(1)); !errors.Is(err, balances.ErrInsufficientFunds) {
			t.Fatalf("debit on empty account: got %v", err)
		}
		if _, err := sc.Balances.ApplyDelta(t.Context(), acct, decimal.NewFromInt(10)); err != nil {
			return err
		}
		got, err := sc.Balances.Debit(t.Context(), acct, decimal.NewFromInt(10))
		if err != nil {
			return err
		}
		if !got.IsZero() {
			t.Fatalf("want zero after exact debit, got %s", got)
		}

		if err := sc.Transactions.Append(t.Context(), transactions.Entry{RefID: "dup"}); err != nil {
			return err
		}
		if err := sc.Transactions.Append(t.Context(), transactions.Entry{RefID: "dup"}); !errors.Is(err, transactions.ErrDuplicateTransaction) {
			t.Fatalf("staged duplicate: got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("within tx: %v", err)
	}

	err = s.WithinTx(t.Context(), func(sc repos.Scope) error {
		if _, err := sc.Transactions.FindByRefID(t.Context(), "dup"); err != nil {
			t.Fatalf("committed entry not visible: %v", err)
		}
		return sc.Transactions.Append(t.Context(), transactions.Entry{RefID: "dup"})
	})
	if !errors.Is(err, transactions.ErrDuplicateTransaction) {
		t.Fatalf("committed duplicate: got %v", err)
	}
}

func TestStore_ConcurrentUnitsDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	s := New()

	const workers = 50

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_ = s.WithinTx(t.Context(), func(sc repos.Scope) error {
				_, err := sc.Balances.ApplyDelta(t.Context(), acct, decimal.NewFromInt(1))
				return err
			})
		}()
	}
	wg.Wait()

	bal, _ := s.Balance(t.Context(), acct)
	if !bal.Equal(decimal.NewFromInt(workers)) {
		t.Fatalf("want %d, got %s", workers, bal)
	}
}
