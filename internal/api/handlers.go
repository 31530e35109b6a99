package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/security"
	"github.com/example/bank-ledger/pkg/audit"
)

type handlers struct {
	ledger *ledger.Ledger
	audit  AuditTrail
	logger *slog.Logger
}

type accountResponse struct {
	AccountID      int       `json:"account_id"`
	Name           string    `json:"name"`
	AccountType    string    `json:"account_type"`
	Balance        float64   `json:"balance"`
	OpeningBalance float64   `json:"opening_balance"`
	OpenDate       time.Time `json:"open_date"`
	Details        string    `json:"details"`
}

func newAccountResponse(a *ledger.Account) accountResponse {
	return accountResponse{
		AccountID:      a.ID(),
		Name:           a.HolderName(),
		AccountType:    string(a.Type()),
		Balance:        a.Balance(),
		OpeningBalance: a.OpeningBalance(),
		OpenDate:       a.OpenDate(),
		Details:        a.Details(),
	}
}

type createAccountRequest struct {
	Name           string  `json:"name"`
	InitialDeposit float64 `json:"initial_deposit"`
	AccountType    string  `json:"account_type"`
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type transferRequest struct {
	FromAccountID int     `json:"from_account_id"`
	ToAccountID   int     `json:"to_account_id"`
	Amount        float64 `json:"amount"`
}

type listAccountsResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Accounts      []accountResponse `json:"accounts"`
}

type transactionsResponse struct {
	CorrelationID string                     `json:"correlation_id"`
	AccountID     int                        `json:"account_id"`
	Transactions  []ledger.TransactionRecord `json:"transactions"`
}

type validationResponse struct {
	CorrelationID string                     `json:"correlation_id"`
	AccountID     int                        `json:"account_id"`
	Valid         bool                       `json:"valid"`
	Results       []*ledger.ValidationResult `json:"results"`
}

type auditResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Valid         bool              `json:"valid"`
	Entries       []*audit.LogEntry `json:"entries"`
}

func (h *handlers) requireLedger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.ledger == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "ledger_unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.ledger.Accounts()
	resp := listAccountsResponse{
		CorrelationID: security.CorrelationIDFromContext(r.Context()),
		Accounts:      make([]accountResponse, 0, len(accounts)),
	}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, newAccountResponse(a))
	}
	security.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *handlers) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	account, err := h.ledger.CreateAccount(req.Name, req.InitialDeposit, ledger.AccountType(req.AccountType))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	security.WriteJSON(w, r, http.StatusCreated, newAccountResponse(account))
}

func (h *handlers) getAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.lookup(w, r)
	if !ok {
		return
	}
	security.WriteJSON(w, r, http.StatusOK, newAccountResponse(account))
}

func (h *handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var kinds []ledger.TransactionKind
	if v := r.URL.Query().Get("type"); v != "" {
		kind, ok := ledger.ParseTransactionKind(v)
		if !ok {
			security.WriteJSONErrorMessage(w, r, http.StatusBadRequest, "invalid_transaction_type",
				"type must be one of Deposit, Withdraw, Interest")
			return
		}
		kinds = append(kinds, kind)
	}

	history := account.History(kinds...)
	if history == nil {
		history = []ledger.TransactionRecord{}
	}
	security.WriteJSON(w, r, http.StatusOK, transactionsResponse{
		CorrelationID: security.CorrelationIDFromContext(r.Context()),
		AccountID:     account.ID(),
		Transactions:  history,
	})
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	s, err := h.ledger.AccountSummary(id)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	security.WriteJSON(w, r, http.StatusOK, s)
}

func (h *handlers) validate(w http.ResponseWriter, r *http.Request) {
	account, ok := h.lookup(w, r)
	if !ok {
		return
	}

	results := ledger.NewValidator(h.ledger).ComprehensiveValidation(account.ID())
	valid := true
	for _, res := range results {
		if !res.IsValid {
			valid = false
			h.logger.Warn("account validation failed",
				"cid", security.CorrelationIDFromContext(r.Context()),
				"account_id", account.ID(),
				"validation_type", res.ValidationType,
				"message", res.Message,
			)
		}
	}
	security.WriteJSON(w, r, http.StatusOK, validationResponse{
		CorrelationID: security.CorrelationIDFromContext(r.Context()),
		AccountID:     account.ID(),
		Valid:         valid,
		Results:       results,
	})
}

func (h *handlers) deposit(w http.ResponseWriter, r *http.Request) {
	h.postAmount(w, r, h.ledger.Deposit)
}

func (h *handlers) withdraw(w http.ResponseWriter, r *http.Request) {
	h.postAmount(w, r, h.ledger.Withdraw)
}

func (h *handlers) postAmount(w http.ResponseWriter, r *http.Request, op func(int, float64) (ledger.Receipt, error)) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	receipt, err := op(id, req.Amount)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	security.WriteJSON(w, r, http.StatusOK, receipt)
}

func (h *handlers) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	receipt, err := h.ledger.Transfer(req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	security.WriteJSON(w, r, http.StatusOK, receipt)
}

func (h *handlers) applyInterest(w http.ResponseWriter, r *http.Request) {
	h.ledger.ApplyMonthlyInterest()
	h.listAccounts(w, r)
}

func (h *handlers) auditEntries(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		security.WriteJSONError(w, r, http.StatusNotFound, "audit_disabled")
		return
	}

	security.WriteJSON(w, r, http.StatusOK, auditResponse{
		CorrelationID: security.CorrelationIDFromContext(r.Context()),
		Valid:         h.audit.Verify(),
		Entries:       h.audit.Entries(),
	})
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) (*ledger.Account, bool) {
	id, ok := accountID(w, r)
	if !ok {
		return nil, false
	}
	account, err := h.ledger.Account(id)
	if err != nil {
		writeLedgerError(w, r, err)
		return nil, false
	}
	return account, true
}

func accountID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_account_id")
		return 0, false
	}
	return id, true
}

// writeLedgerError maps a rejected operation to a status and a stable error
// code. The ledger's own message is passed through unchanged.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var lerr *ledger.Error
	if !errors.As(err, &lerr) {
		security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	status, code := http.StatusBadRequest, "invalid_request"
	switch lerr.Kind {
	case ledger.KindInvalidAmount:
		code = "invalid_amount"
	case ledger.KindInsufficientInitialDeposit:
		code = "insufficient_initial_deposit"
	case ledger.KindInvalidAccountType:
		code = "invalid_account_type"
	case ledger.KindAccountNotFound:
		status, code = http.StatusNotFound, "account_not_found"
	case ledger.KindDailyLimitExceeded:
		status, code = http.StatusUnprocessableEntity, "daily_limit_exceeded"
	case ledger.KindMinimumBalanceViolation:
		status, code = http.StatusUnprocessableEntity, "minimum_balance_violation"
	}
	security.WriteJSONErrorMessage(w, r, status, code, lerr.Message)
}
