// Package cli implements the interactive, menu-driven front end of the ledger.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/bank-ledger/internal/ledger"
)

const menu = `
=== Bank Management System ===
1. Create Account
2. Deposit
3. Withdraw
4. Transfer
5. View Account Details
6. View Transactions
7. Apply Monthly Interest
8. View Account Summary
9. Exit`

// timestampLayout matches the microsecond precision of the transaction log.
const timestampLayout = "2006-01-02 15:04:05.000000"

// errEOF ends the session when input runs out in the middle of a prompt.
var errEOF = errors.New("end of input")

// inputError is a value the user typed that could not be parsed. The session
// reports it and shows the menu again.
type inputError struct {
	value string
	want  string
}

// maxEchoLen truncates rejected values in the error message.
const maxEchoLen = 40

func (e *inputError) Error() string {
	v := e.value
	if len(v) > maxEchoLen {
		v = v[:maxEchoLen] + "..."
	}
	return fmt.Sprintf("%q is not a valid %s", v, e.want)
}

type Session struct {
	ledger *ledger.Ledger
	in     *bufio.Reader
	out    io.Writer
}

func NewSession(l *ledger.Ledger, in io.Reader, out io.Writer) *Session {
	return &Session{
		ledger: l,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Run shows the menu until the user exits or input is exhausted. Only read
// errors on the input are returned.
func (s *Session) Run() error {
	for {
		s.println(menu)
		choice, err := s.prompt("Enter your choice: ")
		if err != nil {
			return s.finish(err)
		}

		if choice == "9" {
			s.println("Exiting the system.")
			return nil
		}

		err = s.dispatch(choice)
		var ie *inputError
		switch {
		case err == nil:
		case errors.As(err, &ie):
			s.printf("Invalid input: %s\n", ie)
		default:
			return s.finish(err)
		}
	}
}

func (s *Session) dispatch(choice string) error {
	switch choice {
	case "1":
		return s.createAccount()
	case "2":
		return s.deposit()
	case "3":
		return s.withdraw()
	case "4":
		return s.transfer()
	case "5":
		return s.viewDetails()
	case "6":
		return s.viewTransactions()
	case "7":
		s.ledger.ApplyMonthlyInterest()
		s.println("Monthly interest applied to all accounts.")
		return nil
	case "8":
		return s.viewSummary()
	default:
		s.println("Invalid choice, please try again.")
		return nil
	}
}

func (s *Session) createAccount() error {
	name, err := s.prompt("Enter account holder's name: ")
	if err != nil {
		return err
	}
	deposit, err := s.promptAmount("Enter initial deposit: ")
	if err != nil {
		return err
	}
	types := s.ledger.Policy().AccountTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	accountType, err := s.prompt(fmt.Sprintf("Enter account type (%s): ", strings.Join(names, ", ")))
	if err != nil {
		return err
	}

	account, err := s.ledger.CreateAccount(name, deposit, ledger.AccountType(accountType))
	if err != nil {
		s.println(err.Error())
		return nil
	}
	s.printf("Account created successfully. Account Number: %d\n", account.ID())
	return nil
}

func (s *Session) deposit() error {
	return s.amountOp("Enter deposit amount: ", s.ledger.Deposit)
}

func (s *Session) withdraw() error {
	return s.amountOp("Enter withdrawal amount: ", s.ledger.Withdraw)
}

func (s *Session) amountOp(label string, op func(int, float64) (ledger.Receipt, error)) error {
	id, err := s.promptAccount("Enter account number: ")
	if err != nil {
		return err
	}
	amount, err := s.promptAmount(label)
	if err != nil {
		return err
	}

	receipt, err := op(id, amount)
	if err != nil {
		s.println(err.Error())
		return nil
	}
	s.println(receipt.Message)
	return nil
}

func (s *Session) transfer() error {
	from, err := s.promptAccount("Enter from account number: ")
	if err != nil {
		return err
	}
	to, err := s.promptAccount("Enter to account number: ")
	if err != nil {
		return err
	}
	amount, err := s.promptAmount("Enter transfer amount: ")
	if err != nil {
		return err
	}

	receipt, err := s.ledger.Transfer(from, to, amount)
	if err != nil {
		s.println(err.Error())
		return nil
	}
	s.println(receipt.Message)
	return nil
}

func (s *Session) viewDetails() error {
	id, err := s.promptAccount("Enter account number: ")
	if err != nil {
		return err
	}
	account, err := s.ledger.Account(id)
	if err != nil {
		s.println(err.Error())
		return nil
	}
	s.println(account.Details())
	return nil
}

func (s *Session) viewTransactions() error {
	id, err := s.promptAccount("Enter account number: ")
	if err != nil {
		return err
	}
	account, err := s.ledger.Account(id)
	if err != nil {
		s.println(err.Error())
		return nil
	}

	filter, err := s.prompt("Enter transaction type to filter (Deposit, Withdraw, Interest, or leave blank for all): ")
	if err != nil {
		return err
	}

	var kinds []ledger.TransactionKind
	if filter != "" {
		kind, ok := ledger.ParseTransactionKind(filter)
		if !ok {
			s.println("No transactions found.")
			return nil
		}
		kinds = append(kinds, kind)
	}

	found := false
	for rec := range account.Transactions(kinds...) {
		found = true
		s.printf("Type: %s, Amount: %s, Date: %s\n",
			rec.Kind, ledger.FormatAmount(rec.Amount), rec.Timestamp.Format(timestampLayout))
	}
	if !found {
		s.println("No transactions found.")
	}
	return nil
}

func (s *Session) viewSummary() error {
	id, err := s.promptAccount("Enter account number: ")
	if err != nil {
		return err
	}
	summary, err := s.ledger.AccountSummary(id)
	if err != nil {
		s.println(err.Error())
		return nil
	}
	s.println(summary.String())
	return nil
}

func (s *Session) prompt(label string) (string, error) {
	s.printf("%s", label)
	// ReadString has no line length limit, unlike bufio.Scanner.
	line, err := s.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", errEOF
		}
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) promptAccount(label string) (int, error) {
	v, err := s.prompt(label)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, &inputError{value: v, want: "account number"}
	}
	return id, nil
}

func (s *Session) promptAmount(label string) (float64, error) {
	v, err := s.prompt(label)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &inputError{value: v, want: "amount"}
	}
	return amount, nil
}

// finish turns running out of input into a clean exit.
func (s *Session) finish(err error) error {
	if errors.Is(err, errEOF) {
		s.println("")
		return nil
	}
	return err
}

func (s *Session) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
