package ledger

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
)

// Ledger owns every account it creates and runs the cross-account
// operations. It is safe for concurrent use: the account map is guarded by
// its own lock and every account serializes its own mutations.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[int]*Account
	created  int

	policy Policy
	clock  Clock
	hooks  *hooks
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy = p.clone() }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger sets the structured logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.hooks.logger = logger }
}

// WithObserver registers an Observer. It may be given several times.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.hooks.observers = append(l.hooks.observers, o) }
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		accounts: make(map[int]*Account),
		policy:   DefaultPolicy(),
		clock:    SystemClock{},
		hooks:    &hooks{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.hooks.logger == nil {
		l.hooks.logger = slog.Default()
	}
	if l.clock == nil {
		l.clock = SystemClock{}
	}
	if err := l.policy.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Policy returns a copy of the policy the ledger enforces.
func (l *Ledger) Policy() Policy {
	return l.policy.clone()
}

// CreateAccount opens an account with the given holder, opening balance and
// type. The identifier is the number of accounts created so far plus one; a
// rejected request does not consume an identifier.
func (l *Ledger) CreateAccount(name string, initialDeposit float64, accountType AccountType) (*Account, error) {
	acct, err := l.createAccount(name, initialDeposit, accountType)

	e := Event{Op: OpCreateAccount, Amount: initialDeposit, Err: err, At: l.clock.Now()}
	if acct != nil {
		e.AccountID = acct.id
		e.Balance = acct.openingBalance
	}
	l.hooks.emit(e)

	return acct, err
}

func (l *Ledger) createAccount(name string, initialDeposit float64, accountType AccountType) (*Account, error) {
	if math.IsNaN(initialDeposit) || math.IsInf(initialDeposit, 0) {
		return nil, newError(KindInvalidAmount, "Initial deposit must be a finite amount.")
	}
	if initialDeposit < l.policy.MinimumBalance {
		return nil, newError(KindInsufficientInitialDeposit,
			"Initial deposit must be at least %s.", FormatAmount(l.policy.MinimumBalance))
	}
	if !l.policy.Supports(accountType) {
		return nil, newError(KindInvalidAccountType,
			"Invalid account type. Available types: %s.", joinTypes(l.policy.AccountTypes()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.created++
	acct := &Account{
		id:             l.created,
		holderName:     name,
		accountType:    accountType,
		openDate:       l.clock.Now(),
		openingBalance: initialDeposit,
		balance:        initialDeposit,
		policy:         &l.policy,
		clock:          l.clock,
		hooks:          l.hooks,
	}
	l.accounts[acct.id] = acct
	return acct, nil
}

// Account looks up an account by identifier.
func (l *Ledger) Account(id int) (*Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return nil, accountNotFound()
	}
	return acct, nil
}

// Accounts returns every account ordered by identifier.
func (l *Ledger) Accounts() []*Account {
	l.mu.RLock()
	out := make([]*Account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, acct)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Deposit credits an account.
func (l *Ledger) Deposit(id int, amount float64) (Receipt, error) {
	acct, err := l.Account(id)
	if err != nil {
		l.hooks.emit(Event{Op: OpDeposit, AccountID: id, Amount: amount, Err: err, At: l.clock.Now()})
		return Receipt{}, err
	}
	return acct.Deposit(amount)
}

// Withdraw debits an account subject to the policy.
func (l *Ledger) Withdraw(id int, amount float64) (Receipt, error) {
	acct, err := l.Account(id)
	if err != nil {
		l.hooks.emit(Event{Op: OpWithdraw, AccountID: id, Amount: amount, Err: err, At: l.clock.Now()})
		return Receipt{}, err
	}
	return acct.Withdraw(amount)
}

// TransferReceipt describes a completed transfer.
type TransferReceipt struct {
	FromID      int     `json:"from_account_id"`
	ToID        int     `json:"to_account_id"`
	Amount      float64 `json:"amount"`
	FromBalance float64 `json:"from_balance"`
	ToBalance   float64 `json:"to_balance"`
	Message     string  `json:"message"`
}

// Transfer withdraws amount from fromID and deposits it into toID. Both
// accounts are locked for the whole operation, in ascending identifier
// order, so no other operation observes the intermediate state. If the
// withdrawal is rejected the transfer fails with the same error and neither
// account changes. The credit side cannot fail once the withdrawal passed.
func (l *Ledger) Transfer(fromID, toID int, amount float64) (TransferReceipt, error) {
	receipt, err := l.transfer(fromID, toID, amount)

	e := Event{
		Op:             OpTransfer,
		AccountID:      fromID,
		CounterpartyID: toID,
		Amount:         amount,
		Balance:        receipt.FromBalance,
		Err:            err,
		At:             l.clock.Now(),
	}
	if err != nil {
		if from, lookupErr := l.Account(fromID); lookupErr == nil {
			e.Balance = from.Balance()
		}
	}
	l.hooks.emit(e)

	return receipt, err
}

func (l *Ledger) transfer(fromID, toID int, amount float64) (TransferReceipt, error) {
	l.mu.RLock()
	from, okFrom := l.accounts[fromID]
	to, okTo := l.accounts[toID]
	l.mu.RUnlock()

	if !okFrom || !okTo {
		return TransferReceipt{}, newError(KindAccountNotFound, "One or both accounts not found.")
	}

	unlock := lockPair(from, to)
	defer unlock()

	if _, err := from.withdraw(amount); err != nil {
		return TransferReceipt{}, err
	}
	to.credit(Deposit, amount)

	return TransferReceipt{
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		FromBalance: from.balance,
		ToBalance:   to.balance,
		Message:     fmt.Sprintf("Transferred %s from %d to %d.", FormatAmount(amount), fromID, toID),
	}, nil
}

// lockPair locks both accounts in ascending identifier order and returns the
// matching unlock. A self transfer locks once.
func lockPair(a, b *Account) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// ApplyMonthlyInterest applies interest to every account.
func (l *Ledger) ApplyMonthlyInterest() {
	for _, acct := range l.Accounts() {
		acct.ApplyInterest()
	}
}

// Summary aggregates an account's details and transaction totals.
type Summary struct {
	AccountID        int     `json:"account_id"`
	Details          string  `json:"details"`
	TransactionCount int     `json:"transaction_count"`
	TotalDeposits    float64 `json:"total_deposits"`
	TotalWithdrawals float64 `json:"total_withdrawals"`
	TotalInterest    float64 `json:"total_interest"`
}

func (s Summary) String() string {
	var b strings.Builder
	b.WriteString(s.Details)
	fmt.Fprintf(&b, "\nTotal Transactions: %d", s.TransactionCount)
	fmt.Fprintf(&b, "\nTotal Deposits: %s, Total Withdrawals: %s",
		FormatAmount(s.TotalDeposits), FormatAmount(s.TotalWithdrawals))
	return b.String()
}

// AccountSummary builds a read-only Summary for an account.
func (l *Ledger) AccountSummary(id int) (Summary, error) {
	acct, err := l.Account(id)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{AccountID: id, Details: acct.Details()}
	for rec := range acct.Transactions() {
		s.TransactionCount++
		switch rec.Kind {
		case Deposit:
			s.TotalDeposits += rec.Amount
		case Withdraw:
			s.TotalWithdrawals += rec.Amount
		case Interest:
			s.TotalInterest += rec.Amount
		}
	}
	return s, nil
}
