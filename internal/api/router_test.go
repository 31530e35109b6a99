package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/metrics"
	"github.com/example/bank-ledger/internal/security"
	"github.com/example/bank-ledger/pkg/audit"
)

type testServer struct {
	handler http.Handler
	ledger  *ledger.Ledger
	audit   *audit.ChainLogger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := audit.NewChainLogger()
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	l, err := ledger.NewLedger(
		ledger.WithLogger(logger),
		ledger.WithObserver(ledger.AuditObserver{Auditor: chain}),
		ledger.WithObserver(collector),
	)
	require.NoError(t, err)

	h, err := NewRouter(Dependencies{
		Logger:       logger,
		Ledger:       l,
		Audit:        chain,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MaxBodyBytes: 1024,
	})
	require.NoError(t, err)

	return &testServer{handler: h, ledger: l, audit: chain}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (s *testServer) createAccount(t *testing.T, name string, deposit float64, typ string) int {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/accounts", map[string]any{
		"name":            name,
		"initial_deposit": deposit,
		"account_type":    typ,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[accountResponse](t, rec).AccountID
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(security.CorrelationIDHeader))
}

func TestCreateAndGetAccount(t *testing.T) {
	s := newTestServer(t)

	id := s.createAccount(t, "John Doe", 1000, "Savings")
	assert.Equal(t, 1, id)

	rec := s.do(t, http.MethodGet, "/v1/accounts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	acct := decode[accountResponse](t, rec)
	assert.Equal(t, "John Doe", acct.Name)
	assert.Equal(t, "Savings", acct.AccountType)
	assert.Equal(t, 1000.0, acct.Balance)
	assert.Contains(t, acct.Details, "Account Number: 1, Name: John Doe, Balance: 1000.0, Account Type: Savings")

	s.createAccount(t, "Jane Doe", 500, "Checking")
	rec = s.do(t, http.MethodGet, "/v1/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listAccountsResponse](t, rec)
	require.Len(t, list.Accounts, 2)
	assert.Equal(t, 1, list.Accounts[0].AccountID)
	assert.Equal(t, 2, list.Accounts[1].AccountID)
}

func TestCreateAccountRejections(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		body   any
		status int
		code   string
		msg    string
	}{
		{
			name:   "low initial deposit",
			body:   map[string]any{"name": "A", "initial_deposit": 50, "account_type": "Savings"},
			status: http.StatusBadRequest,
			code:   "insufficient_initial_deposit",
			msg:    "Initial deposit must be at least 100.0.",
		},
		{
			name:   "unknown type",
			body:   map[string]any{"name": "A", "initial_deposit": 500, "account_type": "Premium"},
			status: http.StatusBadRequest,
			code:   "invalid_account_type",
			msg:    "Invalid account type. Available types: Savings, Checking, Business.",
		},
		{
			name:   "missing field",
			body:   map[string]any{"name": "A", "initial_deposit": 500},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "malformed json",
			body:   `{"name": "A",`,
			status: http.StatusBadRequest,
			code:   "invalid_json",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/accounts", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			resp := decode[security.ErrorResponse](t, rec)
			assert.Equal(t, tc.code, resp.Error)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, resp.Message)
			}
		})
	}

	assert.Empty(t, s.ledger.Accounts())
}

func TestDepositAndWithdraw(t *testing.T) {
	s := newTestServer(t)
	id := s.createAccount(t, "John Doe", 1000, "Savings")
	require.Equal(t, 1, id)

	rec := s.do(t, http.MethodPost, "/v1/accounts/1/deposit", map[string]any{"amount": 500})
	require.Equal(t, http.StatusOK, rec.Code)
	receipt := decode[ledger.Receipt](t, rec)
	assert.Equal(t, 1500.0, receipt.Balance)
	assert.Equal(t, "Deposited 500.0. New balance is 1500.0.", receipt.Message)

	rec = s.do(t, http.MethodPost, "/v1/accounts/1/withdraw", map[string]any{"amount": 200})
	require.Equal(t, http.StatusOK, rec.Code)
	receipt = decode[ledger.Receipt](t, rec)
	assert.Equal(t, 1300.0, receipt.Balance)
	assert.Equal(t, ledger.Withdraw, receipt.Kind)

	rec = s.do(t, http.MethodPost, "/v1/accounts/1/withdraw", map[string]any{"amount": 1250})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[security.ErrorResponse](t, rec)
	assert.Equal(t, "minimum_balance_violation", resp.Error)
	assert.Equal(t, "Withdrawal denied. Minimum balance should be 100.0.", resp.Message)

	rec = s.do(t, http.MethodPost, "/v1/accounts/1/deposit", map[string]any{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_amount", decode[security.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/v1/accounts/9/deposit", map[string]any{"amount": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Account not found.", decode[security.ErrorResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/v1/accounts/abc/deposit", map[string]any{"amount": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_account_id", decode[security.ErrorResponse](t, rec).Error)
}

func TestDailyLimitOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.createAccount(t, "John Doe", 10000, "Savings")

	rec := s.do(t, http.MethodPost, "/v1/accounts/1/withdraw", map[string]any{"amount": 6000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "daily_limit_exceeded", decode[security.ErrorResponse](t, rec).Error)
}

func TestTransfer(t *testing.T) {
	s := newTestServer(t)
	s.createAccount(t, "John Doe", 1000, "Savings")
	s.createAccount(t, "Jane Doe", 500, "Checking")

	rec := s.do(t, http.MethodPost, "/v1/transfers", map[string]any{
		"from_account_id": 1,
		"to_account_id":   2,
		"amount":          300,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	receipt := decode[ledger.TransferReceipt](t, rec)
	assert.Equal(t, 700.0, receipt.FromBalance)
	assert.Equal(t, 800.0, receipt.ToBalance)
	assert.Equal(t, "Transferred 300.0 from 1 to 2.", receipt.Message)

	rec = s.do(t, http.MethodPost, "/v1/transfers", map[string]any{
		"from_account_id": 1,
		"to_account_id":   7,
		"amount":          10,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "One or both accounts not found.", decode[security.ErrorResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/v1/transfers", map[string]any{
		"from_account_id": 1,
		"to_account_id":   2,
		"amount":          650,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	from, err := s.ledger.Account(1)
	require.NoError(t, err)
	assert.Equal(t, 700.0, from.Balance())
}

func TestTransactionsSummaryAndInterest(t *testing.T) {
	s := newTestServer(t)
	s.createAccount(t, "John Doe", 1000, "Savings")
	s.do(t, http.MethodPost, "/v1/accounts/1/deposit", map[string]any{"amount": 500})
	s.do(t, http.MethodPost, "/v1/accounts/1/withdraw", map[string]any{"amount": 200})

	rec := s.do(t, http.MethodPost, "/v1/interest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listAccountsResponse](t, rec)
	require.Len(t, list.Accounts, 1)
	assert.InDelta(t, 1313.0, list.Accounts[0].Balance, 1e-9)

	rec = s.do(t, http.MethodGet, "/v1/accounts/1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode[transactionsResponse](t, rec)
	require.Len(t, txs.Transactions, 3)
	assert.Equal(t, ledger.Deposit, txs.Transactions[0].Kind)
	assert.Equal(t, ledger.Withdraw, txs.Transactions[1].Kind)
	assert.Equal(t, ledger.Interest, txs.Transactions[2].Kind)

	rec = s.do(t, http.MethodGet, "/v1/accounts/1/transactions?type=Withdraw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs = decode[transactionsResponse](t, rec)
	require.Len(t, txs.Transactions, 1)
	assert.Equal(t, 200.0, txs.Transactions[0].Amount)

	rec = s.do(t, http.MethodGet, "/v1/accounts/1/transactions?type=Refund", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/accounts/1/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[ledger.Summary](t, rec)
	assert.Equal(t, 3, summary.TransactionCount)
	assert.Equal(t, 500.0, summary.TotalDeposits)
	assert.Equal(t, 200.0, summary.TotalWithdrawals)

	rec = s.do(t, http.MethodGet, "/v1/accounts/4/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.createAccount(t, "John Doe", 1000, "Business")
	s.do(t, http.MethodPost, "/v1/accounts/1/withdraw", map[string]any{"amount": 100})

	rec := s.do(t, http.MethodGet, "/v1/accounts/1/validation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[validationResponse](t, rec)
	assert.True(t, resp.Valid)
	assert.NotEmpty(t, resp.Results)

	rec = s.do(t, http.MethodGet, "/v1/accounts/2/validation", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditTrail(t *testing.T) {
	s := newTestServer(t)
	s.createAccount(t, "John Doe", 1000, "Savings")
	s.do(t, http.MethodPost, "/v1/accounts/1/withdraw", map[string]any{"amount": 950})

	rec := s.do(t, http.MethodGet, "/v1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[auditResponse](t, rec)
	assert.True(t, resp.Valid)
	require.Len(t, resp.Entries, 2)
	assert.Contains(t, resp.Entries[0].Payload, "op=create_account account=1")
	assert.Contains(t, resp.Entries[1].Payload, "ok=false kind=MinimumBalanceViolation")
}

func TestAuditDisabled(t *testing.T) {
	l, err := ledger.NewLedger(ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	h, err := NewRouter(Dependencies{Ledger: l, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.createAccount(t, "John Doe", 1000, "Savings")

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bank_ledger_operations_total{op="create_account",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "bank_ledger_accounts 1")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[security.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodDelete, "/v1/transfers", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPayloadTooLarge(t *testing.T) {
	s := newTestServer(t)

	body := `{"name": "` + strings.Repeat("a", 2048) + `", "initial_deposit": 500, "account_type": "Savings"}`
	rec := s.do(t, http.MethodPost, "/v1/accounts", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNilLedger(t *testing.T) {
	h, err := NewRouter(Dependencies{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
