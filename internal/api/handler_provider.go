package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/fastprodman/seamlesswallet/internal/services/callback"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// Callbacks routes decoded callback bodies to ledger operations.
type Callbacks interface {
	Knows(op string) bool
	Dispatch(ctx context.Context, op string, req callback.Request) (callback.Response, int)
	Malformed(op string, cause error) (callback.Response, int)
}

// EntryFinder looks up a single ledger entry by ref id.
type EntryFinder interface {
	FindEntry(ctx context.Context, refID string) (transactions.Entry, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerProvider exposes the wallet HTTP handlers.
type HandlerProvider struct {
	callbacks Callbacks
	entries   EntryFinder
	health    Pinger
}

// NewHandler returns a new Handler provider.
func NewHandler(callbacks Callbacks, entries EntryFinder, health Pinger) *HandlerProvider {
	return &HandlerProvider{callbacks: callbacks, entries: entries, health: health}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a size-capped JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		var tooBig *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return errors.New("empty body")
		case errors.As(err, &tooBig):
			return fmt.Errorf("body exceeds %d bytes", tooBig.Limit)
		default:
			return errors.New("invalid JSON body")
		}
	}

	return nil
}

// --- Handlers ---

// CallbackHandler handles POST /callback/{operation}
func (h *HandlerProvider) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operation")

	var req callback.Request

	if h.callbacks.Knows(op) {
		err := decodeBody(w, r, &req)
		if err != nil {
			resp, status := h.callbacks.Malformed(op, err)
			writeJSON(w, status, resp)

			return
		}
	}

	resp, status := h.callbacks.Dispatch(r.Context(), op, req)
	writeJSON(w, status, resp)
}

type addBalanceRequest struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// AddBalanceHandler handles POST /admin/addBalance. It credits the signed
// balance through updateBalance and answers with the callback envelope.
func (h *HandlerProvider) AddBalanceHandler(w http.ResponseWriter, r *http.Request) {
	const op = "updateBalance"

	var body addBalanceRequest

	err := decodeBody(w, r, &body)
	if err != nil {
		resp, status := h.callbacks.Malformed(op, err)
		writeJSON(w, status, resp)

		return
	}

	resp, status := h.callbacks.Dispatch(r.Context(), op, callback.Request{
		ID:       body.ID,
		Username: body.Username,
		Currency: body.Currency,
		Amount:   body.Balance,
	})
	writeJSON(w, status, resp)
}

type entryResponse struct {
	RefID           string      `json:"refId"`
	TxnID           string      `json:"txnId"`
	Action          string      `json:"action"`
	RequestID       string      `json:"requestId"`
	Username        string      `json:"username"`
	ProductID       string      `json:"productId"`
	Currency        string      `json:"currency"`
	Amount          json.Number `json:"amount"`
	Status          string      `json:"status,omitempty"`
	RoundID         string      `json:"roundId,omitempty"`
	GameCode        string      `json:"gameCode,omitempty"`
	PlayInfo        string      `json:"playInfo,omitempty"`
	TimestampMillis int64       `json:"timestampMillis"`
	BalanceBefore   json.Number `json:"balanceBefore"`
	BalanceAfter    json.Number `json:"balanceAfter"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func toEntryResponse(e transactions.Entry) entryResponse {
	return entryResponse{
		RefID:           e.RefID,
		TxnID:           e.TxnID,
		Action:          e.Action,
		RequestID:       e.RequestID,
		Username:        e.Username,
		ProductID:       e.ProductID,
		Currency:        e.Currency,
		Amount:          json.Number(e.Amount.String()),
		Status:          e.Status,
		RoundID:         e.RoundID,
		GameCode:        e.GameCode,
		PlayInfo:        e.PlayInfo,
		TimestampMillis: e.TimestampMillis,
		BalanceBefore:   json.Number(e.BalanceBefore.String()),
		BalanceAfter:    json.Number(e.BalanceAfter.String()),
		CreatedAt:       e.CreatedAt,
	}
}

// GetEntryHandler handles GET /admin/entries/{refId}
func (h *HandlerProvider) GetEntryHandler(w http.ResponseWriter, r *http.Request) {
	refID := chi.URLParam(r, "refId")
	if refID == "" {
		writeError(w, http.StatusBadRequest, "missing refId")
		return
	}

	e, err := h.entries.FindEntry(r.Context(), refID)
	if err != nil {
		if errors.Is(err, transactions.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}

		slog.ErrorContext(r.Context(), "entry lookup failed", "ref_id", refID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

// HealthHandler handles GET /healthz
func (h *HandlerProvider) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	err := h.health.Ping(ctx)
	if err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
