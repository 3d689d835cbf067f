package callback

import (
	"encoding/json"

	"github.com/fastprodman/seamlesswallet/internal/services/ledger"
	"github.com/shopspring/decimal"
)

// Envelope status codes.
const (
	StatusSuccess              = 0
	StatusInsufficientBalance  = 10002
	StatusDuplicateTransaction = 20002
	StatusBadRequest           = 40000
	StatusMissingTxnID         = 40003
	StatusInternalError        = 50001
	StatusServiceUnavailable   = 503
)

// Request is the JSON body shared by every callback endpoint.
type Request struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	Username        string          `json:"username"`
	Currency        string          `json:"currency"`
	TimestampMillis int64           `json:"timestampMillis"`
	Amount          decimal.Decimal `json:"amount"`
	Txns            []TxnRequest    `json:"txns"`
}

type TxnRequest struct {
	ID                string          `json:"id"`
	RefID             string          `json:"refId"`
	TxnID             string          `json:"txnId"`
	BetAmount         decimal.Decimal `json:"betAmount"`
	PayoutAmount      decimal.Decimal `json:"payoutAmount"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	RoundID           string          `json:"roundId"`
	GameCode          string          `json:"gameCode"`
	PlayInfo          string          `json:"playInfo"`
	SkipBalanceUpdate bool            `json:"skipBalanceUpdate"`
}

func (r Request) Batch() ledger.Batch {
	b := ledger.Batch{
		RequestID:       r.ID,
		ProductID:       r.ProductID,
		Username:        r.Username,
		Currency:        r.Currency,
		TimestampMillis: r.TimestampMillis,
		Amount:          r.Amount,
		Txns:            make([]ledger.Txn, len(r.Txns)),
	}

	for i, t := range r.Txns {
		b.Txns[i] = ledger.Txn{
			ID:                t.ID,
			RefID:             t.RefID,
			TxnID:             t.TxnID,
			BetAmount:         t.BetAmount,
			PayoutAmount:      t.PayoutAmount,
			Amount:            t.Amount,
			Status:            t.Status,
			RoundID:           t.RoundID,
			GameCode:          t.GameCode,
			PlayInfo:          t.PlayInfo,
			SkipBalanceUpdate: t.SkipBalanceUpdate,
		}
	}

	return b
}

// Response is the single envelope returned by every callback endpoint.
// Balances are JSON numbers; balanceBefore and balanceAfter are null when
// they could not be determined.
type Response struct {
	ID              string       `json:"id"`
	StatusCode      int          `json:"statusCode"`
	TimestampMillis int64        `json:"timestampMillis"`
	ProductID       string       `json:"productId"`
	Username        string       `json:"username"`
	Currency        string       `json:"currency"`
	Balance         *json.Number `json:"balance,omitempty"`
	BalanceBefore   *json.Number `json:"balanceBefore"`
	BalanceAfter    *json.Number `json:"balanceAfter"`
	Error           string       `json:"error,omitempty"`
	Detail          string       `json:"detail,omitempty"`
}

func number(d decimal.Decimal) *json.Number {
	n := json.Number(d.String())
	return &n
}
