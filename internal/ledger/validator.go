package ledger

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Validator checks ledger invariants by replaying account logs.
type Validator struct {
	ledger *Ledger
}

// NewValidator creates a new validator instance
func NewValidator(l *Ledger) *Validator {
	return &Validator{
		ledger: l,
	}
}

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	IsValid        bool                   `json:"is_valid"`
	ValidationType string                 `json:"validation_type"`
	Message        string                 `json:"message"`
	AccountID      int                    `json:"account_id,omitempty"`
	TransactionID  string                 `json:"transaction_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// Allow for small floating point differences
const epsilon = 0.00000001

// ValidateAccountType checks if account type is valid
func (v *Validator) ValidateAccountType(accountType AccountType) *ValidationResult {
	valid := v.ledger.policy.Supports(accountType)

	msg := fmt.Sprintf("account type '%s' is valid", accountType)
	if accountType == "" {
		msg = "account type is required"
	} else if !valid {
		msg = fmt.Sprintf("invalid account type '%s'. Valid types are: %s",
			accountType, joinTypes(v.ledger.policy.AccountTypes()))
	}

	return &ValidationResult{
		IsValid:        valid,
		ValidationType: "account_type",
		Message:        msg,
		Timestamp:      v.now(),
	}
}

// ValidateBalanceConsistency checks that the opening balance plus the logged
// deposits and interest minus the logged withdrawals equals the balance.
func (v *Validator) ValidateBalanceConsistency(accountID int) *ValidationResult {
	acct, err := v.ledger.Account(accountID)
	if err != nil {
		return v.notFound("balance_consistency", accountID)
	}

	acct.mu.Lock()
	actual := acct.balance
	log := acct.transactions[:len(acct.transactions):len(acct.transactions)]
	acct.mu.Unlock()

	expected := acct.openingBalance
	for _, rec := range log {
		expected += signed(rec)
	}

	details := map[string]interface{}{
		"actual_balance":   actual,
		"expected_balance": expected,
		"opening_balance":  acct.openingBalance,
		"transactions":     len(log),
	}

	if math.Abs(actual-expected) >= epsilon {
		details["difference"] = actual - expected
		return &ValidationResult{
			IsValid:        false,
			ValidationType: "balance_consistency",
			Message:        fmt.Sprintf("balance inconsistency: actual (%.8f) != expected (%.8f)", actual, expected),
			AccountID:      accountID,
			Timestamp:      v.now(),
			Details:        details,
		}
	}

	return &ValidationResult{
		IsValid:        true,
		ValidationType: "balance_consistency",
		Message:        fmt.Sprintf("balance is consistent: %s", FormatAmount(actual)),
		AccountID:      accountID,
		Timestamp:      v.now(),
		Details:        details,
	}
}

// ValidateDailyCap checks that no calendar day's withdrawals exceed the
// daily withdrawal limit.
func (v *Validator) ValidateDailyCap(accountID int) *ValidationResult {
	acct, err := v.ledger.Account(accountID)
	if err != nil {
		return v.notFound("daily_cap", accountID)
	}

	limit := v.ledger.policy.DailyWithdrawalLimit
	totals := make(map[string]float64)
	var days []string
	for rec := range acct.Transactions(Withdraw) {
		day := rec.Timestamp.Format(time.DateOnly)
		if _, seen := totals[day]; !seen {
			days = append(days, day)
		}
		totals[day] += rec.Amount
	}

	var over []string
	for _, day := range days {
		if totals[day] > limit+epsilon {
			over = append(over, fmt.Sprintf("%s (%s)", day, FormatAmount(totals[day])))
		}
	}

	if len(over) > 0 {
		return &ValidationResult{
			IsValid:        false,
			ValidationType: "daily_cap",
			Message:        fmt.Sprintf("daily withdrawal limit %s exceeded on %s", FormatAmount(limit), strings.Join(over, ", ")),
			AccountID:      accountID,
			Timestamp:      v.now(),
			Details: map[string]interface{}{
				"limit":        limit,
				"days_checked": len(days),
				"days_over":    len(over),
			},
		}
	}

	return &ValidationResult{
		IsValid:        true,
		ValidationType: "daily_cap",
		Message:        fmt.Sprintf("withdrawals stay within %s per day", FormatAmount(limit)),
		AccountID:      accountID,
		Timestamp:      v.now(),
		Details: map[string]interface{}{
			"limit":        limit,
			"days_checked": len(days),
		},
	}
}

// ValidateMinimumBalance replays the log and checks that the balance never
// fell below the minimum right after a withdrawal.
func (v *Validator) ValidateMinimumBalance(accountID int) *ValidationResult {
	acct, err := v.ledger.Account(accountID)
	if err != nil {
		return v.notFound("minimum_balance", accountID)
	}

	floor := v.ledger.policy.MinimumBalance
	running := acct.openingBalance
	for rec := range acct.Transactions() {
		running += signed(rec)
		if rec.Kind == Withdraw && running < floor-epsilon {
			return &ValidationResult{
				IsValid:        false,
				ValidationType: "minimum_balance",
				Message:        fmt.Sprintf("withdrawal left balance %s below minimum %s", FormatAmount(running), FormatAmount(floor)),
				AccountID:      accountID,
				TransactionID:  rec.ID,
				Timestamp:      v.now(),
				Details: map[string]interface{}{
					"balance_after": running,
					"minimum":       floor,
				},
			}
		}
	}

	return &ValidationResult{
		IsValid:        true,
		ValidationType: "minimum_balance",
		Message:        fmt.Sprintf("balance never fell below %s after a withdrawal", FormatAmount(floor)),
		AccountID:      accountID,
		Timestamp:      v.now(),
	}
}

// ComprehensiveValidation runs every account-level check.
func (v *Validator) ComprehensiveValidation(accountID int) []*ValidationResult {
	return []*ValidationResult{
		v.ValidateAccountTypeOf(accountID),
		v.ValidateBalanceConsistency(accountID),
		v.ValidateDailyCap(accountID),
		v.ValidateMinimumBalance(accountID),
	}
}

// ValidateAccountTypeOf checks the stored type of an existing account.
func (v *Validator) ValidateAccountTypeOf(accountID int) *ValidationResult {
	acct, err := v.ledger.Account(accountID)
	if err != nil {
		return v.notFound("account_type", accountID)
	}
	res := v.ValidateAccountType(acct.accountType)
	res.AccountID = accountID
	return res
}

func (v *Validator) notFound(validationType string, accountID int) *ValidationResult {
	return &ValidationResult{
		IsValid:        false,
		ValidationType: validationType,
		Message:        fmt.Sprintf("account %d not found", accountID),
		AccountID:      accountID,
		Timestamp:      v.now(),
	}
}

func (v *Validator) now() time.Time {
	return v.ledger.clock.Now()
}

func signed(rec TransactionRecord) float64 {
	if rec.Kind == Withdraw {
		return -rec.Amount
	}
	return rec.Amount
}
