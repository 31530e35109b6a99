package ledger

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a business rule violation.
type ErrorKind string

const (
	KindInvalidAmount              ErrorKind = "InvalidAmount"
	KindInsufficientInitialDeposit ErrorKind = "InsufficientInitialDeposit"
	KindInvalidAccountType         ErrorKind = "InvalidAccountType"
	KindAccountNotFound            ErrorKind = "AccountNotFound"
	KindDailyLimitExceeded         ErrorKind = "DailyLimitExceeded"
	KindMinimumBalanceViolation    ErrorKind = "MinimumBalanceViolation"
)

// Error is returned for every rejected ledger operation. It never signals a
// broken ledger: the operation was refused and no state changed.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can compare against the
// sentinels below regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidAmount              = &Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrInsufficientInitialDeposit = &Error{Kind: KindInsufficientInitialDeposit, Message: "insufficient initial deposit"}
	ErrInvalidAccountType         = &Error{Kind: KindInvalidAccountType, Message: "invalid account type"}
	ErrAccountNotFound            = &Error{Kind: KindAccountNotFound, Message: "Account not found."}
	ErrDailyLimitExceeded         = &Error{Kind: KindDailyLimitExceeded, Message: "Daily withdrawal limit exceeded."}
	ErrMinimumBalanceViolation    = &Error{Kind: KindMinimumBalanceViolation, Message: "minimum balance violation"}
)

// KindOf returns the kind of a ledger error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func accountNotFound() *Error {
	return newError(KindAccountNotFound, "Account not found.")
}
