package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/infra/pgutils"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ q pgutils.Querier }

func New(q pgutils.Querier) *transactionsRepo {
	return &transactionsRepo{q: q}
}

const entryColumns = `
	ref_id, txn_id, action, request_id, username, product_id, currency,
	amount, status, round_id, game_code, play_info, timestamp_millis,
	balance_before, balance_after`

// Append inserts e. Inside a transaction the insert runs under a savepoint so
// that a failed attempt can be retried without aborting the outer unit.
func (r *transactionsRepo) Append(ctx context.Context, e transactions.Entry) error {
	tx, ok := r.q.(*sql.Tx)
	if !ok {
		return r.insert(ctx, r.q, e)
	}

	return pgutils.WithSavepoint(ctx, tx, "ledger_entry_append", func() error {
		return r.insert(ctx, tx, e)
	})
}

func (r *transactionsRepo) insert(ctx context.Context, q pgutils.Querier, e transactions.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		e.RefID, e.TxnID, e.Action, e.RequestID, e.Username, e.ProductID, e.Currency,
		e.Amount, e.Status, e.RoundID, e.GameCode, e.PlayInfo, e.TimestampMillis,
		e.BalanceBefore, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return transactions.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert ledger entry %s: %w", e.RefID, err)
	}

	return nil
}

func (r *transactionsRepo) FindByRefID(ctx context.Context, refID string) (transactions.Entry, error) {
	var e transactions.Entry

	err := r.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+`, created_at
		FROM ledger_entries
		WHERE ref_id = $1
	`, refID).Scan(
		&e.RefID, &e.TxnID, &e.Action, &e.RequestID, &e.Username, &e.ProductID, &e.Currency,
		&e.Amount, &e.Status, &e.RoundID, &e.GameCode, &e.PlayInfo, &e.TimestampMillis,
		&e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transactions.Entry{}, transactions.ErrNotFound
		}

		return transactions.Entry{}, fmt.Errorf("find ledger entry %s: %w", refID, err)
	}

	return e, nil
}
