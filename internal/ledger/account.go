package ledger

import (
	"fmt"
	"iter"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Account is one holder's balance, daily withdrawal counters and append-only
// transaction log. All methods are safe for concurrent use.
type Account struct {
	mu sync.Mutex

	id             int
	holderName     string
	accountType    AccountType
	openDate       time.Time
	openingBalance float64

	balance              float64
	dailyWithdrawalTotal float64
	lastWithdrawalDate   time.Time
	transactions         []TransactionRecord

	policy *Policy
	clock  Clock
	hooks  *hooks
}

// Receipt describes a successful deposit, withdrawal or interest posting.
type Receipt struct {
	AccountID int             `json:"account_id"`
	Kind      TransactionKind `json:"type"`
	Amount    float64         `json:"amount"`
	Balance   float64         `json:"balance"`
	Message   string          `json:"message"`
}

func (a *Account) ID() int { return a.id }
func (a *Account) HolderName() string { return a.holderName }
func (a *Account) Type() AccountType { return a.accountType }
func (a *Account) OpenDate() time.Time { return a.openDate }
func (a *Account) OpeningBalance() float64 { return a.openingBalance }

// Balance returns the current balance.
func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// DailyWithdrawalTotal returns the running withdrawal total and the date it
// belongs to. The date is zero until the first successful withdrawal.
func (a *Account) DailyWithdrawalTotal() (float64, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dailyWithdrawalTotal, a.lastWithdrawalDate
}

// Details renders the one-line account description.
func (a *Account) Details() string {
	a.mu.Lock()
	balance := a.balance
	a.mu.Unlock()

	return fmt.Sprintf("Account Number: %d, Name: %s, Balance: %s, Account Type: %s, Opened On: %s",
		a.id, a.holderName, FormatAmount(balance), a.accountType, a.openDate.Format(time.DateTime))
}

// Deposit adds amount to the balance and logs a Deposit record.
func (a *Account) Deposit(amount float64) (Receipt, error) {
	a.mu.Lock()
	rec, err := a.deposit(amount)
	balance := a.balance
	a.mu.Unlock()

	a.hooks.emit(Event{Op: OpDeposit, AccountID: a.id, Amount: amount, Balance: balance, Err: err, At: a.clock.Now()})
	if err != nil {
		return Receipt{}, err
	}
	return a.receipt(rec, balance, "Deposited %s. New balance is %s."), nil
}

// Withdraw removes amount from the balance if the daily limit and the
// minimum balance allow it. Checks run in this order: amount, daily limit,
// minimum balance. A rejected withdrawal leaves balance and log untouched.
func (a *Account) Withdraw(amount float64) (Receipt, error) {
	a.mu.Lock()
	rec, err := a.withdraw(amount)
	balance := a.balance
	a.mu.Unlock()

	a.hooks.emit(Event{Op: OpWithdraw, AccountID: a.id, Amount: amount, Balance: balance, Err: err, At: a.clock.Now()})
	if err != nil {
		return Receipt{}, err
	}
	return a.receipt(rec, balance, "Withdrew %s. New balance is %s."), nil
}

// ApplyInterest credits balance * rate for the account type. An Interest
// record is logged even when the rate is zero.
func (a *Account) ApplyInterest() {
	a.mu.Lock()
	rate := a.policy.Rate(a.accountType)
	rec := a.credit(Interest, a.balance*rate)
	balance := a.balance
	a.mu.Unlock()

	a.hooks.logger.Info("interest applied",
		slog.Int("account_id", a.id),
		slog.Float64("rate", rate),
		slog.Float64("amount", rec.Amount),
		slog.Float64("balance", balance),
	)
	a.hooks.emit(Event{Op: OpInterest, AccountID: a.id, Amount: rec.Amount, Balance: balance, At: rec.Timestamp})
}

// Transactions yields the log oldest first, restricted to kinds when any are
// given. Each iteration reads the log as it is at that moment.
func (a *Account) Transactions(kinds ...TransactionKind) iter.Seq[TransactionRecord] {
	return func(yield func(TransactionRecord) bool) {
		a.mu.Lock()
		log := a.transactions[:len(a.transactions):len(a.transactions)]
		a.mu.Unlock()

		for _, rec := range log {
			if !matchesKind(rec, kinds) {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// History collects Transactions into a slice.
func (a *Account) History(kinds ...TransactionKind) []TransactionRecord {
	var out []TransactionRecord
	for rec := range a.Transactions(kinds...) {
		out = append(out, rec)
	}
	return out
}

func (a *Account) receipt(rec TransactionRecord, balance float64, format string) Receipt {
	return Receipt{
		AccountID: a.id,
		Kind:      rec.Kind,
		Amount:    rec.Amount,
		Balance:   balance,
		Message:   fmt.Sprintf(format, FormatAmount(rec.Amount), FormatAmount(balance)),
	}
}

// The lower-case operations below require a.mu to be held.

func (a *Account) deposit(amount float64) (TransactionRecord, error) {
	if !validAmount(amount) {
		return TransactionRecord{}, newError(KindInvalidAmount, "Deposit amount must be positive.")
	}
	return a.credit(Deposit, amount), nil
}

func (a *Account) withdraw(amount float64) (TransactionRecord, error) {
	if !validAmount(amount) {
		return TransactionRecord{}, newError(KindInvalidAmount, "Withdrawal amount must be positive.")
	}

	now := a.clock.Now()
	if a.lastWithdrawalDate.IsZero() || !sameDay(now, a.lastWithdrawalDate) {
		a.dailyWithdrawalTotal = 0
	}

	if a.dailyWithdrawalTotal+amount > a.policy.DailyWithdrawalLimit {
		return TransactionRecord{}, newError(KindDailyLimitExceeded, "Daily withdrawal limit exceeded.")
	}
	if a.balance-amount < a.policy.MinimumBalance {
		return TransactionRecord{}, newError(KindMinimumBalanceViolation,
			"Withdrawal denied. Minimum balance should be %s.", FormatAmount(a.policy.MinimumBalance))
	}

	a.balance -= amount
	a.dailyWithdrawalTotal += amount
	a.lastWithdrawalDate = now
	return a.append(Withdraw, amount, now), nil
}

func (a *Account) credit(kind TransactionKind, amount float64) TransactionRecord {
	a.balance += amount
	return a.append(kind, amount, a.clock.Now())
}

func (a *Account) append(kind TransactionKind, amount float64, at time.Time) TransactionRecord {
	rec := newRecord(kind, amount, at)
	a.transactions = append(a.transactions, rec)
	return rec
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 1)
}
