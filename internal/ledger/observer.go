package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/bank-ledger/pkg/audit"
)

// Operation names carried by Event.Op.
const (
	OpCreateAccount = "create_account"
	OpDeposit       = "deposit"
	OpWithdraw      = "withdraw"
	OpTransfer      = "transfer"
	OpInterest      = "interest"
)

// Event reports the outcome of one ledger operation. Err is nil on success;
// on rejection Balance is the unchanged balance.
type Event struct {
	Op             string
	AccountID      int
	CounterpartyID int
	Amount         float64
	Balance        float64
	Err            error
	At             time.Time
}

// Observer receives every Event after the operation has completed and all
// account locks have been released.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type hooks struct {
	logger    *slog.Logger
	observers []Observer
}

func (h *hooks) emit(e Event) {
	if e.Err != nil {
		h.logger.Info("operation rejected",
			slog.String("op", e.Op),
			slog.Int("account_id", e.AccountID),
			slog.Float64("amount", e.Amount),
			slog.String("kind", string(KindOf(e.Err))),
			slog.String("reason", e.Err.Error()),
		)
	} else {
		h.logger.Debug("operation applied",
			slog.String("op", e.Op),
			slog.Int("account_id", e.AccountID),
			slog.Float64("amount", e.Amount),
			slog.Float64("balance", e.Balance),
		)
	}

	for _, o := range h.observers {
		o.Observe(e)
	}
}

// Auditor is the subset of audit.ChainLogger the ledger writes to.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// AuditObserver records every event in a hash-chained audit trail.
type AuditObserver struct {
	Auditor Auditor
}

func (o AuditObserver) Observe(e Event) {
	o.Auditor.Append(AuditPayload(e))
}

// AuditPayload renders an event as a single key=value line.
func AuditPayload(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "op=%s account=%d", e.Op, e.AccountID)
	if e.CounterpartyID != 0 {
		fmt.Fprintf(&b, " counterparty=%d", e.CounterpartyID)
	}
	fmt.Fprintf(&b, " amount=%s balance=%s", FormatAmount(e.Amount), FormatAmount(e.Balance))
	if e.Err != nil {
		fmt.Fprintf(&b, " ok=false kind=%s", KindOf(e.Err))
	} else {
		b.WriteString(" ok=true")
	}
	return b.String()
}
