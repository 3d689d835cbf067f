package ledger

import (
	"errors"
	"strings"

	"github.com/fastprodman/seamlesswallet/internal/repos/balances"
	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

// Operation is a callback verb. Its value doubles as the ledger action name.
type Operation string

const (
	OpCheckBalance  Operation = "checkBalance"
	OpGetBalance    Operation = "getBalance"
	OpPlaceBets     Operation = "placeBets"
	OpConfirmBets   Operation = "confirmBets"
	OpSettleBets    Operation = "settleBets"
	OpCancelBets    Operation = "cancelBets"
	OpRollbackBets  Operation = "rollbackBets"
	OpAdjustBets    Operation = "adjustBets"
	OpAdjustBalance Operation = "adjustBalance"
	OpWinRewards    Operation = "winRewards"
	OpPayTips       Operation = "payTips"
	OpCancelTips    Operation = "cancelTips"
	OpVoidSettled   Operation = "voidSettled"
	OpUpdateBalance Operation = "updateBalance"
)

// Operations lists every verb in routing order.
var Operations = []Operation{
	OpCheckBalance, OpPlaceBets, OpConfirmBets, OpUpdateBalance, OpGetBalance,
	OpSettleBets, OpCancelBets, OpAdjustBets, OpRollbackBets, OpWinRewards,
	OpPayTips, OpCancelTips, OpVoidSettled, OpAdjustBalance,
}

// Line item statuses that change a delta.
const (
	StatusSettled  = "SETTLED"
	StatusRollback = "ROLLBACK"
	StatusCredit   = "CREDIT"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrMissingTxnID         = errors.New("line item is missing a transaction id")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrUnknownOperation     = errors.New("unknown operation")
)

// Batch is one callback request: line items sharing an account and context.
type Batch struct {
	RequestID       string
	ProductID       string
	Username        string
	Currency        string
	TimestampMillis int64
	// Amount is only read by UpdateBalance.
	Amount decimal.Decimal
	Txns   []Txn
}

func (b Batch) Account() balances.Account {
	return balances.Account{Username: b.Username, Currency: b.Currency}
}

// Txn is one line item.
type Txn struct {
	ID                string
	RefID             string
	TxnID             string
	BetAmount         decimal.Decimal
	PayoutAmount      decimal.Decimal
	Amount            decimal.Decimal
	Status            string
	RoundID           string
	GameCode          string
	PlayInfo          string
	SkipBalanceUpdate bool
}

// Key is the caller's identifier of the item: refId when present, else id.
func (t Txn) Key() string {
	if t.RefID != "" {
		return t.RefID
	}

	return t.ID
}

func (t Txn) hasStatus(status string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), status)
}

// Result carries the balances around an operation. On duplicate and
// insufficient-funds outcomes it still holds the current balance.
type Result struct {
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	// BalanceKnown is false when the operation failed before the balance
	// could be read.
	BalanceKnown bool
	Entries      []transactions.Entry
}
