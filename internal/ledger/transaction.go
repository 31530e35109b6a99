package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind names the balance-affecting event a record logs.
type TransactionKind string

const (
	Deposit  TransactionKind = "Deposit"
	Withdraw TransactionKind = "Withdraw"
	Interest TransactionKind = "Interest"
)

// ParseTransactionKind accepts the exact kind names. ok is false otherwise.
func ParseTransactionKind(s string) (TransactionKind, bool) {
	switch k := TransactionKind(s); k {
	case Deposit, Withdraw, Interest:
		return k, true
	}
	return "", false
}

// TransactionRecord is one immutable entry of an account's log.
type TransactionRecord struct {
	ID        string          `json:"id"`
	Kind      TransactionKind `json:"type"`
	Amount    float64         `json:"amount"`
	Timestamp time.Time       `json:"date"`
}

func newRecord(kind TransactionKind, amount float64, at time.Time) TransactionRecord {
	return TransactionRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Amount:    amount,
		Timestamp: at,
	}
}

func matchesKind(rec TransactionRecord, kinds []TransactionKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if rec.Kind == k {
			return true
		}
	}
	return false
}
