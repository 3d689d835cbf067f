package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/infra/metrics"
	"github.com/fastprodman/seamlesswallet/internal/repos"
	"github.com/fastprodman/seamlesswallet/internal/repos/memstore"
	"github.com/fastprodman/seamlesswallet/internal/services/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newDispatcher(t *testing.T, opening string) (*Dispatcher, *prometheus.Registry) {
	t.Helper()

	store := memstore.New()
	svc := ledger.New(store, ledger.WithClock(clock))

	if opening != "" {
		_, err := svc.UpdateBalance(t.Context(), ledger.Batch{
			RequestID: "seed", Username: "alice", Currency: "USD", Amount: decimal.RequireFromString(opening),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	reg := prometheus.NewRegistry()

	return NewDispatcher(svc, metrics.New(reg), clock), reg
}

func decode(t *testing.T, body string) Request {
	t.Helper()

	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}

	return req
}

func num(t *testing.T, n *json.Number) string {
	t.Helper()

	if n == nil {
		return "<nil>"
	}

	return decimal.RequireFromString(n.String()).String()
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		op         string
		body       string
		wantCode   int
		wantHTTP   int
		wantBefore string
		wantAfter  string
	}{
		{
			name:       "check_balance",
			op:         "checkBalance",
			body:       `{"id":"r1","username":"alice","currency":"USD"}`,
			wantCode:   StatusSuccess,
			wantHTTP:   http.StatusOK,
			wantBefore: "100",
			wantAfter:  "100",
		},
		{
			name:       "place_bets",
			op:         "placeBets",
			body:       `{"id":"r2","productId":"p","username":"alice","currency":"USD","txns":[{"id":"b1","betAmount":20}]}`,
			wantCode:   StatusSuccess,
			wantHTTP:   http.StatusOK,
			wantBefore: "100",
			wantAfter:  "80",
		},
		{
			name:       "amounts_as_strings",
			op:         "settleBets",
			body:       `{"id":"r3","username":"alice","currency":"USD","txns":[{"refId":"s1","betAmount":"20","payoutAmount":"45.5"}]}`,
			wantCode:   StatusSuccess,
			wantHTTP:   http.StatusOK,
			wantBefore: "100",
			wantAfter:  "125.5",
		},
		{
			name:       "insufficient",
			op:         "payTips",
			body:       `{"id":"r4","username":"alice","currency":"USD","txns":[{"id":"t1","betAmount":500}]}`,
			wantCode:   StatusInsufficientBalance,
			wantHTTP:   http.StatusOK,
			wantBefore: "100",
			wantAfter:  "100",
		},
		{
			name:       "missing_txn_id",
			op:         "placeBets",
			body:       `{"id":"r5","username":"alice","currency":"USD","txns":[{"betAmount":20}]}`,
			wantCode:   StatusMissingTxnID,
			wantHTTP:   http.StatusBadRequest,
			wantBefore: "<nil>",
			wantAfter:  "<nil>",
		},
		{
			name:       "amount_finer_than_storage_scale",
			op:         "placeBets",
			body:       `{"id":"r8","username":"alice","currency":"USD","txns":[{"id":"b2","betAmount":"0.0000001"}]}`,
			wantCode:   StatusBadRequest,
			wantHTTP:   http.StatusBadRequest,
			wantBefore: "<nil>",
			wantAfter:  "<nil>",
		},
		{
			name:       "missing_username",
			op:         "getBalance",
			body:       `{"id":"r6","currency":"USD"}`,
			wantCode:   StatusBadRequest,
			wantHTTP:   http.StatusBadRequest,
			wantBefore: "<nil>",
			wantAfter:  "<nil>",
		},
		{
			name:       "unknown_operation",
			op:         "teleport",
			body:       `{"id":"r7","username":"alice","currency":"USD"}`,
			wantCode:   StatusBadRequest,
			wantHTTP:   http.StatusNotFound,
			wantBefore: "<nil>",
			wantAfter:  "<nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, _ := newDispatcher(t, "100")
			req := decode(t, tt.body)

			resp, status := d.Dispatch(t.Context(), tt.op, req)
			if status != tt.wantHTTP || resp.StatusCode != tt.wantCode {
				t.Fatalf("got (%d, %d), want (%d, %d): %+v", status, resp.StatusCode, tt.wantHTTP, tt.wantCode, resp)
			}
			if got := num(t, resp.BalanceBefore); got != tt.wantBefore {
				t.Fatalf("balanceBefore %s, want %s", got, tt.wantBefore)
			}
			if got := num(t, resp.BalanceAfter); got != tt.wantAfter {
				t.Fatalf("balanceAfter %s, want %s", got, tt.wantAfter)
			}
			if resp.ID != req.ID || resp.Username != req.Username || resp.TimestampMillis != fixedNow.UnixMilli() {
				t.Fatalf("envelope context: %+v", resp)
			}
			if (tt.wantCode == StatusSuccess) != (resp.Error == "") {
				t.Fatalf("error field %q for status %d", resp.Error, resp.StatusCode)
			}
		})
	}
}

func TestDispatcher_DuplicateAndMetrics(t *testing.T) {
	t.Parallel()

	d, reg := newDispatcher(t, "100")
	req := decode(t, `{"id":"r1","username":"alice","currency":"USD","txns":[{"id":"b1","betAmount":20}]}`)

	first, _ := d.Dispatch(t.Context(), "placeBets", req)
	if first.StatusCode != StatusSuccess {
		t.Fatalf("first: %+v", first)
	}

	again, status := d.Dispatch(t.Context(), "placeBets", req)
	if status != http.StatusOK || again.StatusCode != StatusDuplicateTransaction {
		t.Fatalf("replay: (%d, %+v)", status, again)
	}
	if num(t, again.BalanceBefore) != "80" || num(t, again.BalanceAfter) != "80" {
		t.Fatalf("replay balances %s -> %s", num(t, again.BalanceBefore), num(t, again.BalanceAfter))
	}

	expected := `
# HELP wallet_callback_operations_total Callback operations by operation and envelope status code.
# TYPE wallet_callback_operations_total counter
wallet_callback_operations_total{operation="placeBets",status_code="0"} 1
wallet_callback_operations_total{operation="placeBets",status_code="20002"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "wallet_callback_operations_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

type failingLedger struct {
	err error
}

func (f failingLedger) call(context.Context, ledger.Batch) (ledger.Result, error) {
	return ledger.Result{}, f.err
}

func TestDispatcher_StorageFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantHTTP   int
		wantDetail bool
	}{
		{
			name:     "unavailable",
			err:      fmt.Errorf("placeBets alice/USD: %w", repos.ErrServiceUnavailable),
			wantCode: StatusServiceUnavailable,
			wantHTTP: http.StatusServiceUnavailable,
		},
		{
			name:       "internal",
			err:        errors.New(`pq: relation "ledger_entries" does not exist`),
			wantCode:   StatusInternalError,
			wantHTTP:   http.StatusInternalServerError,
			wantDetail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := failingLedger{err: tt.err}
			d := &Dispatcher{
				ops: map[ledger.Operation]operationFunc{ledger.OpPlaceBets: f.call},
				now: clock,
			}

			req := decode(t, `{"id":"r1","username":"alice","currency":"USD","txns":[{"id":"b1","betAmount":1}]}`)
			resp, status := d.Dispatch(t.Context(), "placeBets", req)

			if status != tt.wantHTTP || resp.StatusCode != tt.wantCode {
				t.Fatalf("got (%d, %d), want (%d, %d)", status, resp.StatusCode, tt.wantHTTP, tt.wantCode)
			}
			if resp.BalanceBefore != nil {
				t.Fatalf("balanceBefore must be null when unknown, got %s", resp.BalanceBefore)
			}
			if tt.wantDetail && resp.Detail == "" {
				t.Fatal("internal error must carry a detail")
			}
			if strings.Contains(resp.Detail, "ledger_entries") || strings.Contains(resp.Error, "ledger_entries") {
				t.Fatalf("storage internals leaked: %+v", resp)
			}
		})
	}
}

func TestResponse_JSONShape(t *testing.T) {
	t.Parallel()

	resp := Response{ID: "r1", StatusCode: StatusSuccess, BalanceAfter: number(decimal.RequireFromString("80.50"))}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(raw)
	if !strings.Contains(s, `"balanceBefore":null`) || !strings.Contains(s, `"balanceAfter":80.5`) {
		t.Fatalf("unexpected JSON: %s", s)
	}
	if strings.Contains(s, `"balance":`) || strings.Contains(s, `"error"`) {
		t.Fatalf("optional fields must be omitted: %s", s)
	}
}

func TestDispatcher_KnowsAndMalformed(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, "")

	for _, op := range ledger.Operations {
		if !d.Knows(string(op)) {
			t.Fatalf("%s must be routed", op)
		}
	}
	if d.Knows("teleport") {
		t.Fatal("teleport must not be routed")
	}

	resp, status := d.Malformed("placeBets", errors.New("invalid JSON body"))
	if status != http.StatusBadRequest || resp.StatusCode != StatusBadRequest || resp.Error != "invalid JSON body" {
		t.Fatalf("malformed: (%d, %+v)", status, resp)
	}
	if resp.TimestampMillis != fixedNow.UnixMilli() {
		t.Fatalf("timestamp %d", resp.TimestampMillis)
	}
}
