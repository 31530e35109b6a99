package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// AccountType selects the interest rate an account earns.
type AccountType string

const (
	Savings  AccountType = "Savings"
	Checking AccountType = "Checking"
	Business AccountType = "Business"
)

const (
	DefaultDailyWithdrawalLimit = 5000.0
	DefaultMinimumBalance       = 100.0
)

// Policy holds the limits and the rate table every account is checked against.
// A Ledger copies its Policy at construction; changing the original afterwards
// has no effect.
type Policy struct {
	DailyWithdrawalLimit float64
	MinimumBalance       float64
	Rates                map[AccountType]float64
}

// DefaultPolicy returns the standard limits: 5000 per day, a floor of 100 and
// 1% / 0% / 2% interest for Savings / Checking / Business.
func DefaultPolicy() Policy {
	return Policy{
		DailyWithdrawalLimit: DefaultDailyWithdrawalLimit,
		MinimumBalance:       DefaultMinimumBalance,
		Rates: map[AccountType]float64{
			Savings:  0.01,
			Checking: 0.00,
			Business: 0.02,
		},
	}
}

// Validate checks that the policy can be enforced.
func (p Policy) Validate() error {
	var problems []string

	// NaN compares false against everything and would disable the checks.
	switch {
	case math.IsNaN(p.DailyWithdrawalLimit):
		problems = append(problems, "daily withdrawal limit must be a number")
	case p.DailyWithdrawalLimit < 0:
		problems = append(problems, "daily withdrawal limit must not be negative")
	}
	switch {
	case math.IsNaN(p.MinimumBalance) || math.IsInf(p.MinimumBalance, 1):
		problems = append(problems, "minimum balance must be finite")
	case p.MinimumBalance < 0:
		problems = append(problems, "minimum balance must not be negative")
	}
	if len(p.Rates) == 0 {
		problems = append(problems, "at least one account type is required")
	}
	for t, r := range p.Rates {
		if t == "" {
			problems = append(problems, "account type name must not be empty")
		}
		switch {
		case math.IsNaN(r) || math.IsInf(r, 0):
			problems = append(problems, fmt.Sprintf("rate for %s must be finite", t))
		case r < 0:
			problems = append(problems, fmt.Sprintf("rate for %s must not be negative", t))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New("invalid policy: " + strings.Join(problems, ", "))
	}
	return nil
}

// Rate returns the interest rate for t, or 0 when t is unknown.
func (p Policy) Rate(t AccountType) float64 {
	return p.Rates[t]
}

// Supports reports whether t is in the rate table.
func (p Policy) Supports(t AccountType) bool {
	_, ok := p.Rates[t]
	return ok
}

// AccountTypes lists the valid types: the three standard ones first, in their
// usual order, then any extra types sorted by name.
func (p Policy) AccountTypes() []AccountType {
	out := make([]AccountType, 0, len(p.Rates))
	for _, t := range []AccountType{Savings, Checking, Business} {
		if p.Supports(t) {
			out = append(out, t)
		}
	}

	var extra []AccountType
	for t := range p.Rates {
		if t != Savings && t != Checking && t != Business {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func (p Policy) clone() Policy {
	rates := make(map[AccountType]float64, len(p.Rates))
	for t, r := range p.Rates {
		rates[t] = r
	}
	p.Rates = rates
	return p
}

func joinTypes(types []AccountType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// FormatAmount renders an amount the way receipts and reports show it:
// shortest representation, always with a fractional part ("500.0", "10.5").
// Amounts of 1e16 and above print in full rather than in exponent form.
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
