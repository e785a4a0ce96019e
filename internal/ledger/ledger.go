package ledger

import (
	"context"
	"time"
)

// Kind identifies the type of a ledger record.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdrawal  Kind = "withdrawal"
	KindLoanRequest Kind = "loan_request"
	KindLoanPayment Kind = "loan_payment"
	KindTransferOut Kind = "transfer_out"
	KindTransferIn  Kind = "transfer_in"
)

// LoanStatus tracks the lifecycle of a loan_request record.
type LoanStatus string

const (
	LoanRequested LoanStatus = "requested"
	LoanApproved  LoanStatus = "approved"
	LoanPaid      LoanStatus = "paid"
)

// Record is one entry in an account's append-only transaction log. Records
// are ordered by Seq, which is monotonic per account. A record never changes
// after commit except for the loan status transition on approval and payoff.
type Record struct {
	ID             string
	AccountID      string
	CounterpartyID string // peer account for transfer legs
	TransferID     string // correlation id shared by both transfer legs
	LoanID         string // loan being settled, set on loan_payment records
	Kind           Kind
	Amount         int64
	BalanceAfter   int64
	LoanStatus     LoanStatus // set only on loan_request records
	Seq            int64
	CreatedAt      time.Time
}

// Signed returns the record amount with the sign of its balance effect.
// Loan requests only count once the principal has been disbursed.
func (rec Record) Signed() int64 {
	switch rec.Kind {
	case KindDeposit, KindTransferIn:
		return rec.Amount
	case KindLoanRequest:
		if rec.LoanStatus == LoanApproved || rec.LoanStatus == LoanPaid {
			return rec.Amount
		}
		return 0
	default:
		return -rec.Amount
	}
}

// TransferResult couples the two legs of a committed transfer.
type TransferResult struct {
	TransferID string
	Out        Record
	In         Record
}

// Range bounds a history or statement query. Zero ends are unbounded and the
// zero Range selects everything.
type Range struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the range has no bounds at all.
func (r Range) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t falls inside the range (bounds inclusive).
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Ledger is the contract implemented by ledger backends. Every mutating
// operation is serialised per account, validates against the configured
// policy, and persists the balance update together with the appended record
// as one atomic unit. Implementations must be safe for concurrent use.
type Ledger interface {
	// CreateAccount provisions an empty ledger account. Creating an account
	// that already exists is a no-op.
	CreateAccount(ctx context.Context, accountID string) error

	// Balance returns the live committed balance.
	Balance(ctx context.Context, accountID string) (int64, error)

	Deposit(ctx context.Context, accountID string, amount int64) (Record, error)
	Withdraw(ctx context.Context, accountID string, amount int64) (Record, error)

	// Transfer debits fromID and credits toID atomically, producing two
	// linked records. Both accounts are locked in a fixed global order.
	Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error)

	// RequestLoan records a loan application. It does not move money.
	RequestLoan(ctx context.Context, accountID string, amount int64) (Record, error)
	// ApproveLoan transitions a requested loan to approved and disburses the
	// principal into the account balance.
	ApproveLoan(ctx context.Context, loanID string) (Record, error)
	// PayLoan settles an approved loan, deducting the principal and marking
	// the loan paid. The returned record is the appended loan_payment.
	PayLoan(ctx context.Context, loanID string) (Record, error)
	// Loan returns the loan_request record with the given id.
	Loan(ctx context.Context, loanID string) (Record, error)
	// Loans lists an account's loan_request records in seq order.
	Loans(ctx context.Context, accountID string) ([]Record, error)

	// History returns the account's records inside the range, ordered by seq
	// ascending. Pure query; re-executing without intervening mutation yields
	// an identical sequence.
	History(ctx context.Context, accountID string, r Range) ([]Record, error)
	// BalanceAsOf returns the live balance when r is zero, otherwise the
	// signed sum of record amounts inside the range.
	BalanceAsOf(ctx context.Context, accountID string, r Range) (int64, error)
}
