package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/seamlesswallet/internal/idempotency"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

type deltaFunc func(ctx context.Context, log transactions.Transactions, t Txn) (decimal.Decimal, error)

// rule describes how one verb turns line items into balance changes.
// Positive deltas credit the player.
type rule struct {
	delta deltaFunc
	// requireFunds rejects a net debit the balance does not cover.
	requireFunds bool
	// signedBet accepts negative bet amounts, which the rule folds with Abs.
	signedBet bool
	// signedAmount accepts a negative amount field.
	signedAmount bool
	// noItems marks verbs whose single item is synthesized from the batch.
	noItems bool
}

func fixed(fn func(t Txn) decimal.Decimal) deltaFunc {
	return func(_ context.Context, _ transactions.Transactions, t Txn) (decimal.Decimal, error) {
		return fn(t), nil
	}
}

var rules = map[Operation]rule{
	OpPlaceBets: {
		requireFunds: true,
		delta:        fixed(func(t Txn) decimal.Decimal { return t.BetAmount.Neg() }),
	},
	OpConfirmBets: {
		requireFunds: true,
		delta:        confirmDelta,
	},
	OpSettleBets: {
		signedBet: true,
		delta:     fixed(func(t Txn) decimal.Decimal { return t.PayoutAmount.Sub(t.BetAmount.Abs()) }),
	},
	OpCancelBets: {
		signedBet: true,
		delta:     fixed(func(t Txn) decimal.Decimal { return t.BetAmount.Abs() }),
	},
	OpRollbackBets: {
		delta: fixed(func(t Txn) decimal.Decimal {
			if t.hasStatus(StatusSettled) || t.hasStatus(StatusRollback) {
				return t.PayoutAmount.Add(t.BetAmount).Neg()
			}
			return decimal.Zero
		}),
	},
	OpAdjustBets:    {delta: fixed(adjustDelta)},
	OpAdjustBalance: {delta: fixed(adjustDelta)},
	OpWinRewards: {
		delta: fixed(func(t Txn) decimal.Decimal {
			if t.hasStatus(StatusSettled) {
				return t.PayoutAmount
			}
			return decimal.Zero
		}),
	},
	OpPayTips: {
		requireFunds: true,
		delta:        fixed(func(t Txn) decimal.Decimal { return t.BetAmount.Neg() }),
	},
	OpCancelTips: {
		delta: fixed(func(t Txn) decimal.Decimal { return t.BetAmount }),
	},
	OpVoidSettled: {
		delta: fixed(func(t Txn) decimal.Decimal { return t.BetAmount.Sub(t.PayoutAmount) }),
	},
	OpUpdateBalance: {
		signedAmount: true,
		noItems:      true,
		delta:        fixed(func(t Txn) decimal.Decimal { return t.Amount }),
	},
}

func adjustDelta(t Txn) decimal.Decimal {
	if t.hasStatus(StatusCredit) {
		return t.Amount
	}

	return t.Amount.Neg()
}

// confirmDelta debits the bet unless placeBets already did for this item.
func confirmDelta(ctx context.Context, log transactions.Transactions, t Txn) (decimal.Decimal, error) {
	_, err := log.FindByRefID(ctx, idempotency.RefID(string(OpPlaceBets), t.Key()))
	switch {
	case err == nil:
		return decimal.Zero, nil
	case errors.Is(err, transactions.ErrNotFound):
		return t.BetAmount.Neg(), nil
	default:
		return decimal.Zero, fmt.Errorf("look up placed bet %s: %w", t.Key(), err)
	}
}

// Amounts must fit the storage column NUMERIC(24,6).
const maxAmountScale = 6

var amountLimit = decimal.New(1, 18)

// Validate checks the structural pre-conditions of b for op without touching
// storage. Missing item ids are reported before any amount problem.
func Validate(op Operation, b Batch) error {
	if strings.TrimSpace(b.Username) == "" || strings.TrimSpace(b.Currency) == "" {
		return fmt.Errorf("%w: username and currency are required", ErrInvalidRequest)
	}

	if op == OpCheckBalance || op == OpGetBalance {
		return nil
	}

	r, ok := rules[op]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	if r.noItems {
		return checkAmount("amount", b.Amount)
	}

	if len(b.Txns) == 0 {
		return fmt.Errorf("%w: txns must not be empty", ErrInvalidRequest)
	}

	for i, t := range b.Txns {
		if strings.TrimSpace(t.Key()) == "" {
			return fmt.Errorf("%w: txns[%d]", ErrMissingTxnID, i)
		}
	}

	gross := decimal.Zero

	for i, t := range b.Txns {
		if !r.signedBet && t.BetAmount.IsNegative() {
			return fmt.Errorf("%w: txns[%d].betAmount is negative", ErrInvalidRequest, i)
		}
		if t.PayoutAmount.IsNegative() {
			return fmt.Errorf("%w: txns[%d].payoutAmount is negative", ErrInvalidRequest, i)
		}
		if !r.signedAmount && t.Amount.IsNegative() {
			return fmt.Errorf("%w: txns[%d].amount is negative", ErrInvalidRequest, i)
		}

		for _, f := range []struct {
			name string
			v    decimal.Decimal
		}{
			{"betAmount", t.BetAmount},
			{"payoutAmount", t.PayoutAmount},
			{"amount", t.Amount},
		} {
			err := checkAmount(fmt.Sprintf("txns[%d].%s", i, f.name), f.v)
			if err != nil {
				return err
			}
		}

		gross = gross.Add(t.BetAmount.Abs()).Add(t.PayoutAmount).Add(t.Amount.Abs())
	}

	return checkAmount("txns total", gross)
}

// checkAmount rejects values the balance column would round or overflow.
func checkAmount(field string, v decimal.Decimal) error {
	if v.Abs().GreaterThanOrEqual(amountLimit) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidRequest, field, amountLimit)
	}

	// Trailing zeros past the scale are accepted.
	if !v.Equal(v.Truncate(maxAmountScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidRequest, field, maxAmountScale)
	}

	return nil
}
