package ledger

import "context"

// CheckBalance reads the balance without side effects.
func (s *Service) CheckBalance(ctx context.Context, b Batch) (Result, error) {
	return s.readBalance(ctx, OpCheckBalance, b)
}

func (s *Service) GetBalance(ctx context.Context, b Batch) (Result, error) {
	return s.readBalance(ctx, OpGetBalance, b)
}

// PlaceBets debits every bet. The whole batch is rejected when the balance
// does not cover the sum.
func (s *Service) PlaceBets(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpPlaceBets, b)
}

// ConfirmBets debits bets that were not already placed through PlaceBets.
func (s *Service) ConfirmBets(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpConfirmBets, b)
}

// SettleBets credits payout minus stake for each item.
func (s *Service) SettleBets(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpSettleBets, b)
}

// CancelBets refunds the stake of each item.
func (s *Service) CancelBets(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpCancelBets, b)
}

// RollbackBets reverses payout and stake of settled items.
func (s *Service) RollbackBets(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpRollbackBets, b)
}

func (s *Service) AdjustBets(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpAdjustBets, b)
}

func (s *Service) AdjustBalance(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpAdjustBalance, b)
}

// WinRewards credits the payout of settled items.
func (s *Service) WinRewards(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpWinRewards, b)
}

func (s *Service) PayTips(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpPayTips, b)
}

func (s *Service) CancelTips(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpCancelTips, b)
}

// VoidSettled reverses a settlement: stake back in, payout out.
func (s *Service) VoidSettled(ctx context.Context, b Batch) (Result, error) {
	return s.mutate(ctx, OpVoidSettled, b)
}

// UpdateBalance applies the signed b.Amount. The request id is the
// idempotency key; requests without one get a generated key and are never
// treated as replays.
func (s *Service) UpdateBalance(ctx context.Context, b Batch) (Result, error) {
	err := Validate(OpUpdateBalance, b)
	if err != nil {
		return Result{}, err
	}

	id := b.RequestID
	if id == "" {
		id = s.newID()
	}

	return s.apply(ctx, OpUpdateBalance, b, []Txn{{ID: id, Amount: b.Amount}})
}

func (s *Service) mutate(ctx context.Context, op Operation, b Batch) (Result, error) {
	err := Validate(op, b)
	if err != nil {
		return Result{}, err
	}

	return s.apply(ctx, op, b, b.Txns)
}
