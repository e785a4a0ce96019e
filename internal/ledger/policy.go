package ledger

import (
	"fmt"
	"time"
)

// Policy carries the configurable thresholds governing validation outcomes
// and the concurrency bounds for lock acquisition. Amounts are minor
// currency units.
type Policy struct {
	MinDeposit       int64
	MinWithdraw      int64
	MaxWithdraw      int64
	MinTransfer      int64
	MaxTransfer      int64
	MaxApprovedLoans int
	LockTimeout      time.Duration
	LockRetries      int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinDeposit:       100,
		MinWithdraw:      500,
		MaxWithdraw:      20000,
		MinTransfer:      500,
		MaxTransfer:      20000,
		MaxApprovedLoans: 3,
		LockTimeout:      3 * time.Second,
		LockRetries:      2,
	}
}

// The validation methods below are pure: they judge a requested amount
// against an account snapshot and return nil or a terminal, user-correctable
// error carrying the violated threshold.

// ValidateDeposit checks a deposit amount against the policy minimum.
func (p Policy) ValidateDeposit(amount int64) error {
	if amount < p.MinDeposit {
		return fmt.Errorf("%w: minimum deposit is %d", ErrBelowMinimum, p.MinDeposit)
	}
	return nil
}

// ValidateWithdraw checks a withdrawal against policy bounds and the balance
// snapshot.
func (p Policy) ValidateWithdraw(balance, amount int64) error {
	if amount < p.MinWithdraw {
		return fmt.Errorf("%w: minimum withdrawal is %d", ErrBelowMinimum, p.MinWithdraw)
	}
	if amount > p.MaxWithdraw {
		return fmt.Errorf("%w: maximum withdrawal is %d", ErrAboveMaximum, p.MaxWithdraw)
	}
	if amount > balance {
		return fmt.Errorf("%w: available balance is %d", ErrInsufficientFunds, balance)
	}
	return nil
}

// ValidateTransfer checks the debit side of a transfer. The receiver carries
// no credit constraint.
func (p Policy) ValidateTransfer(balance, amount int64) error {
	if amount < p.MinTransfer {
		return fmt.Errorf("%w: minimum transfer is %d", ErrBelowMinimum, p.MinTransfer)
	}
	if amount > p.MaxTransfer {
		return fmt.Errorf("%w: maximum transfer is %d", ErrAboveMaximum, p.MaxTransfer)
	}
	if amount > balance {
		return fmt.Errorf("%w: available balance is %d", ErrInsufficientFunds, balance)
	}
	return nil
}

// ValidateLoanRequest checks the approved-unpaid loan count against the
// policy limit.
func (p Policy) ValidateLoanRequest(approvedUnpaid int) error {
	if approvedUnpaid >= p.MaxApprovedLoans {
		return fmt.Errorf("%w: at most %d approved loans may be outstanding", ErrLoanLimitExceeded, p.MaxApprovedLoans)
	}
	return nil
}
