package ledger

import "errors"

var (
	// ErrAccountNotFound occurs when an operation references an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrLoanNotFound occurs when a loan operation references an unknown loan id.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrBelowMinimum rejects amounts under the policy minimum for the operation.
	ErrBelowMinimum = errors.New("amount below minimum")

	// ErrAboveMaximum rejects amounts over the policy maximum for the operation.
	ErrAboveMaximum = errors.New("amount above maximum")

	// ErrInsufficientFunds occurs when the account balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLoanLimitExceeded rejects loan requests once the approved-unpaid
	// loan count has reached the policy limit.
	ErrLoanLimitExceeded = errors.New("loan limit exceeded")

	// ErrSameAccountTransfer rejects transfers where sender and receiver match.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrLoanNotPending occurs when approving a loan that is not in the
	// requested state.
	ErrLoanNotPending = errors.New("loan is not awaiting approval")

	// ErrLoanNotApproved occurs when paying a loan that is not approved.
	ErrLoanNotApproved = errors.New("loan is not approved")

	// ErrLockTimeout surfaces when the per-account lock could not be acquired
	// within the policy timeout after bounded retries.
	ErrLockTimeout = errors.New("timed out waiting for account lock")
)
