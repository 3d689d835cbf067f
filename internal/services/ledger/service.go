package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/events"
	"github.com/fastprodman/seamlesswallet/internal/idempotency"
	"github.com/fastprodman/seamlesswallet/internal/infra/metrics"
	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultAppendAttempts    = 3
	defaultAppendBackoff     = 20 * time.Millisecond
	defaultPostCommitTimeout = 2 * time.Second
)

type Service struct {
	store   repos.Store
	guard   *idempotency.Guard
	feed    events.Publisher
	metrics *metrics.Metrics

	now   func() time.Time
	newID func() string

	appendAttempts    int
	appendBackoff     time.Duration
	postCommitTimeout time.Duration
}

type Option func(*Service)

func WithIdempotencyCache(c idempotency.Cache) Option {
	return func(s *Service) { s.guard = idempotency.NewGuard(c) }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.feed = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithAppendRetry bounds how often a failing ledger append is attempted.
func WithAppendRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.appendAttempts = attempts
		}
		s.appendBackoff = backoff
	}
}

func New(store repos.Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		guard:             idempotency.NewGuard(nil),
		feed:              events.NopPublisher{},
		now:               time.Now,
		newID:             uuid.NewString,
		appendAttempts:    defaultAppendAttempts,
		appendBackoff:     defaultAppendBackoff,
		postCommitTimeout: defaultPostCommitTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now is the service clock, shared with the response envelope.
func (s *Service) Now() time.Time { return s.now() }

// FindEntry returns a single ledger entry by its stored ref id.
func (s *Service) FindEntry(ctx context.Context, refID string) (transactions.Entry, error) {
	e, err := s.store.FindEntry(ctx, refID)
	if err != nil {
		return transactions.Entry{}, fmt.Errorf("find entry %s: %w", refID, err)
	}

	return e, nil
}

func (s *Service) readBalance(ctx context.Context, op Operation, b Batch) (Result, error) {
	err := Validate(op, b)
	if err != nil {
		return Result{}, err
	}

	bal, err := s.store.Balance(ctx, b.Account())
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", op, b.Account(), err)
	}

	return Result{BalanceBefore: bal, BalanceAfter: bal, BalanceKnown: true}, nil
}

// apply runs one mutating verb as a single unit of work:
//
// 1) Reject the batch if any item was already applied.
// 2) Compute per-item deltas and apply their sum atomically.
// 3) Append one ledger entry per item with a running before/after snapshot.
//
// Nothing is written when any step fails.
func (s *Service) apply(ctx context.Context, op Operation, b Batch, items []Txn) (Result, error) {
	r := rules[op]
	acct := b.Account()

	refIDs := make([]string, len(items))
	for i, t := range items {
		refIDs[i] = idempotency.RefID(string(op), t.Key())
	}

	hit, err := s.guard.SeenRecently(ctx, refIDs)
	if err != nil {
		slog.WarnContext(ctx, "idempotency cache unavailable", "operation", op, "error", err)
	}
	if hit {
		s.metrics.Duplicate(string(op), "cache")
		return s.duplicate(ctx, op, acct)
	}

	var (
		res       Result
		insertDup bool
	)

	err = s.store.WithinTx(ctx, func(sc repos.Scope) error {
		res = Result{}
		insertDup = false

		ref, dup, err := s.guard.Recorded(ctx, sc.Transactions, refIDs)
		if err != nil {
			return err
		}

		before, err := sc.Balances.Get(ctx, acct)
		if err != nil {
			return err
		}

		res = Result{BalanceBefore: before, BalanceAfter: before, BalanceKnown: true}

		if dup {
			s.metrics.Duplicate(string(op), "log")
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, ref)
		}

		deltas := make([]decimal.Decimal, len(items))
		total := decimal.Zero

		for i, t := range items {
			d := decimal.Zero
			if !t.SkipBalanceUpdate {
				d, err = r.delta(ctx, sc.Transactions, t)
				if err != nil {
					return err
				}
			}

			deltas[i] = d
			total = total.Add(d)
		}

		after := before

		switch {
		case r.requireFunds && total.IsNegative():
			if before.LessThan(total.Neg()) {
				return ErrInsufficientFunds
			}

			after, err = sc.Balances.Debit(ctx, acct, total.Neg())
			if errors.Is(err, balances.ErrInsufficientFunds) {
				return ErrInsufficientFunds
			}
		case !total.IsZero():
			after, err = sc.Balances.ApplyDelta(ctx, acct, total)
		}
		if err != nil {
			return err
		}

		// The atomic write is authoritative; the earlier read may be stale.
		before = after.Sub(total)
		res.BalanceBefore, res.BalanceAfter = before, after

		createdAt := s.now().UTC()
		running := before
		entries := make([]transactions.Entry, len(items))

		for i, t := range items {
			e := newEntry(op, b, t, deltas[i], running, createdAt)
			running = e.BalanceAfter

			err = s.appendEntry(ctx, op, sc.Transactions, e)
			if err != nil {
				insertDup = errors.Is(err, ErrDuplicateTransaction)
				return err
			}

			entries[i] = e
		}

		res.Entries = entries

		return nil
	})
	if err != nil {
		return s.failed(ctx, op, acct, res, insertDup, err)
	}

	s.afterCommit(ctx, op, refIDs, res.Entries)

	return res, nil
}

func (s *Service) failed(ctx context.Context, op Operation, acct balances.Account, res Result, insertDup bool, err error) (Result, error) {
	res.BalanceAfter = res.BalanceBefore

	switch {
	case insertDup:
		// Another request committed the same item first; report its outcome.
		s.metrics.Duplicate(string(op), "insert")
		return s.duplicate(ctx, op, acct)
	case errors.Is(err, ErrDuplicateTransaction):
		slog.InfoContext(ctx, "duplicate batch rejected", "operation", op, "account", acct.String(), "detail", err.Error())
		return res, err
	case errors.Is(err, ErrInsufficientFunds):
		slog.InfoContext(ctx, "insufficient balance", "operation", op, "account", acct.String(), "balance", res.BalanceBefore.String())
		return res, err
	default:
		return res, fmt.Errorf("%s %s: %w", op, acct, err)
	}
}

// duplicate answers a replay with the current balance.
func (s *Service) duplicate(ctx context.Context, op Operation, acct balances.Account) (Result, error) {
	slog.InfoContext(ctx, "duplicate batch rejected", "operation", op, "account", acct.String())

	bal, err := s.store.Balance(ctx, acct)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: read balance after duplicate: %w", op, acct, err)
	}

	return Result{BalanceBefore: bal, BalanceAfter: bal, BalanceKnown: true}, ErrDuplicateTransaction
}

func (s *Service) appendEntry(ctx context.Context, op Operation, log transactions.Transactions, e transactions.Entry) error {
	var err error

	for attempt := 1; attempt <= s.appendAttempts; attempt++ {
		err = log.Append(ctx, e)
		if err == nil {
			return nil
		}

		if errors.Is(err, transactions.ErrDuplicateTransaction) {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, e.RefID)
		}

		if attempt == s.appendAttempts {
			break
		}

		s.metrics.AppendRetry(string(op))
		slog.WarnContext(ctx, "ledger append failed, retrying",
			"operation", op, "ref_id", e.RefID, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("append ledger entry %s: %w", e.RefID, ctx.Err())
		case <-time.After(s.appendBackoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("append ledger entry %s after %d attempts: %w", e.RefID, s.appendAttempts, err)
}

// afterCommit fills the idempotency cache and publishes the entries. Both are
// best effort.
func (s *Service) afterCommit(ctx context.Context, op Operation, refIDs []string, entries []transactions.Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.postCommitTimeout)
	defer cancel()

	err := s.guard.Remember(ctx, refIDs)
	if err != nil {
		s.metrics.PostCommitFailure("cache")
		slog.WarnContext(ctx, "idempotency cache write failed", "operation", op, "error", err)
	}

	err = s.feed.PublishEntries(ctx, entries)
	if err != nil {
		s.metrics.PostCommitFailure("feed")
		slog.ErrorContext(ctx, "ledger entry feed publish failed", "operation", op, "entries", len(entries), "error", err)
	}
}

func newEntry(op Operation, b Batch, t Txn, delta, before decimal.Decimal, createdAt time.Time) transactions.Entry {
	txnID := t.TxnID
	if txnID == "" {
		txnID = t.Key()
	}

	return transactions.Entry{
		RefID:           idempotency.RefID(string(op), t.Key()),
		TxnID:           txnID,
		Action:          string(op),
		RequestID:       b.RequestID,
		Username:        b.Username,
		ProductID:       b.ProductID,
		Currency:        b.Currency,
		Amount:          delta,
		Status:          t.Status,
		RoundID:         t.RoundID,
		GameCode:        t.GameCode,
		PlayInfo:        t.PlayInfo,
		TimestampMillis: b.TimestampMillis,
		BalanceBefore:   before,
		BalanceAfter:    before.Add(delta),
		CreatedAt:       createdAt,
	}
}
