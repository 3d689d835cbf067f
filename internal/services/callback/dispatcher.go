// Package callback routes decoded wallet callbacks to ledger operations and
// renders their outcome as the response envelope.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/infra/metrics"
	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/services/ledger"
)

// Ledger is the set of operations the dispatcher can route to.
type Ledger interface {
	CheckBalance(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	GetBalance(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	PlaceBets(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	ConfirmBets(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	SettleBets(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	CancelBets(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	RollbackBets(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	AdjustBets(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	AdjustBalance(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	WinRewards(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	PayTips(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	CancelTips(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	VoidSettled(ctx context.Context, b ledger.Batch) (ledger.Result, error)
	UpdateBalance(ctx context.Context, b ledger.Batch) (ledger.Result, error)
}

var _ Ledger = (*ledger.Service)(nil)

type operationFunc func(ctx context.Context, b ledger.Batch) (ledger.Result, error)

type Dispatcher struct {
	ops     map[ledger.Operation]operationFunc
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDispatcher(l Ledger, m *metrics.Metrics, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		ops: map[ledger.Operation]operationFunc{
			ledger.OpCheckBalance:  l.CheckBalance,
			ledger.OpGetBalance:    l.GetBalance,
			ledger.OpPlaceBets:     l.PlaceBets,
			ledger.OpConfirmBets:   l.ConfirmBets,
			ledger.OpSettleBets:    l.SettleBets,
			ledger.OpCancelBets:    l.CancelBets,
			ledger.OpRollbackBets:  l.RollbackBets,
			ledger.OpAdjustBets:    l.AdjustBets,
			ledger.OpAdjustBalance: l.AdjustBalance,
			ledger.OpWinRewards:    l.WinRewards,
			ledger.OpPayTips:       l.PayTips,
			ledger.OpCancelTips:    l.CancelTips,
			ledger.OpVoidSettled:   l.VoidSettled,
			ledger.OpUpdateBalance: l.UpdateBalance,
		},
		metrics: m,
		now:     now,
	}
}

// Knows reports whether op has a route.
func (d *Dispatcher) Knows(op string) bool {
	_, ok := d.ops[ledger.Operation(op)]
	return ok
}

// Dispatch runs op for req and returns the envelope with its HTTP status.
func (d *Dispatcher) Dispatch(ctx context.Context, op string, req Request) (Response, int) {
	started := d.now()

	resp, status := d.dispatch(ctx, ledger.Operation(op), req)
	resp.TimestampMillis = d.now().UnixMilli()

	label := op
	if !d.Knows(op) {
		label = "unknown"
	}

	d.metrics.ObserveOperation(label, resp.StatusCode, d.now().Sub(started))

	return resp, status
}

// Malformed answers a body that could not be decoded for a known op.
func (d *Dispatcher) Malformed(op string, cause error) (Response, int) {
	resp, status := d.fail(Response{}, StatusBadRequest, http.StatusBadRequest, cause.Error())
	resp.TimestampMillis = d.now().UnixMilli()

	d.metrics.ObserveOperation(op, resp.StatusCode, 0)

	return resp, status
}

func (d *Dispatcher) dispatch(ctx context.Context, op ledger.Operation, req Request) (Response, int) {
	resp := Response{
		ID:        req.ID,
		ProductID: req.ProductID,
		Username:  req.Username,
		Currency:  req.Currency,
	}

	fn, ok := d.ops[op]
	if !ok {
		return d.fail(resp, StatusBadRequest, http.StatusNotFound, fmt.Sprintf("unknown operation %q", op))
	}

	b := req.Batch()

	err := ledger.Validate(op, b)
	if err != nil {
		return d.reject(ctx, op, resp, ledger.Result{}, err)
	}

	res, err := fn(ctx, b)
	if err != nil {
		return d.reject(ctx, op, resp, res, err)
	}

	resp.StatusCode = StatusSuccess
	fillBalances(&resp, op, res)

	return resp, http.StatusOK
}

func (d *Dispatcher) reject(ctx context.Context, op ledger.Operation, resp Response, res ledger.Result, err error) (Response, int) {
	if res.BalanceKnown {
		fillBalances(&resp, op, res)
	}

	switch {
	case errors.Is(err, ledger.ErrMissingTxnID):
		return d.fail(resp, StatusMissingTxnID, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInvalidRequest), errors.Is(err, ledger.ErrUnknownOperation):
		return d.fail(resp, StatusBadRequest, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return d.fail(resp, StatusInsufficientBalance, http.StatusOK, "insufficient balance")
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return d.fail(resp, StatusDuplicateTransaction, http.StatusOK, "duplicate transaction")
	case errors.Is(err, repos.ErrServiceUnavailable):
		slog.ErrorContext(ctx, "storage unavailable", "operation", op, "request_id", resp.ID, "error", err)
		return d.fail(resp, StatusServiceUnavailable, http.StatusServiceUnavailable, "service unavailable")
	default:
		slog.ErrorContext(ctx, "callback operation failed", "operation", op, "request_id", resp.ID, "error", err)
		resp.Detail = fmt.Sprintf("%s could not be completed", op)
		return d.fail(resp, StatusInternalError, http.StatusInternalServerError, "internal error")
	}
}

func (d *Dispatcher) fail(resp Response, code, httpStatus int, msg string) (Response, int) {
	resp.StatusCode = code
	resp.Error = msg

	return resp, httpStatus
}

func fillBalances(resp *Response, op ledger.Operation, res ledger.Result) {
	resp.BalanceBefore = number(res.BalanceBefore)
	resp.BalanceAfter = number(res.BalanceAfter)

	switch op {
	case ledger.OpCheckBalance, ledger.OpGetBalance, ledger.OpUpdateBalance:
		resp.Balance = number(res.BalanceAfter)
	}
}
