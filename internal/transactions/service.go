package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/umoja-bank/umoja/internal/account"
	"github.com/umoja-bank/umoja/internal/ledger"
	"github.com/umoja-bank/umoja/internal/notification"
)

// ErrNotOwner indicates the caller does not own the account being operated on.
var ErrNotOwner = errors.New("not owner of account")

// Service is the caller boundary for money movement. It resolves accounts,
// delegates to the ledger, and dispatches notifications after commit.
type Service struct {
	ledger   ledger.Ledger
	accounts *account.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transaction service.
func NewService(ledgerBackend ledger.Ledger, accounts *account.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ledger: ledgerBackend, accounts: accounts, notifier: notifier, logger: logger}
}

// Result describes the committed outcome of a single-account operation.
type Result struct {
	TransactionID string
	Kind          ledger.Kind
	Amount        int64
	Balance       int64
	CompletedAt   time.Time
}

// TransferResult describes the committed outcome of a transfer.
type TransferResult struct {
	TransferID  string
	FromBalance int64
	ToBalance   int64
	Amount      int64
	CompletedAt time.Time
}

// Statement is the read-side report over an account's transaction log. With
// a date range, Balance is the sum of record amounts inside it; without one
// it is the live account balance.
type Statement struct {
	AccountID     string
	AccountNumber int64
	Balance       int64
	Records       []ledger.Record
	GeneratedAt   time.Time
}

// DepositInput captures a deposit request.
type DepositInput struct {
	AccountID       string
	Amount          int64
	RequestorUserID string
}

// WithdrawInput captures a withdrawal request.
type WithdrawInput struct {
	AccountID       string
	Amount          int64
	RequestorUserID string
}

// TransferInput captures a transfer request. The receiver is addressed by
// account number, as printed on a statement.
type TransferInput struct {
	FromAccountID   string
	ToAccountNumber int64
	Amount          int64
	RequestorUserID string
}

// LoanInput captures a loan application.
type LoanInput struct {
	AccountID       string
	Amount          int64
	RequestorUserID string
}

// PayLoanInput captures a loan payoff request.
type PayLoanInput struct {
	LoanID          string
	RequestorUserID string
}

// StatementInput captures a statement query. Zero bounds mean unbounded.
type StatementInput struct {
	AccountID       string
	From            time.Time
	To              time.Time
	RequestorUserID string
}

func fromRecord(rec ledger.Record) Result {
	return Result{
		TransactionID: rec.ID,
		Kind:          rec.Kind,
		Amount:        rec.Amount,
		Balance:       rec.BalanceAfter,
		CompletedAt:   rec.CreatedAt,
	}
}

// ownedAccount loads the account and enforces that the requestor owns it.
// An empty requestor skips the ownership check (internal callers).
func (s *Service) ownedAccount(ctx context.Context, accountID, requestor string) (account.Account, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, ledger.ErrAccountNotFound
		}
		return account.Account{}, err
	}
	if requestor != "" && acct.OwnerID != requestor {
		return account.Account{}, ErrNotOwner
	}
	return acct, nil
}

// notify dispatches a completed-transaction event. Failures are logged and
// never affect the committed operation.
func (s *Service) notify(ctx context.Context, kind, destination string, amount int64, body string) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{Kind: kind, Destination: destination, Amount: amount, Body: body}
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("notification dispatch failed", "kind", kind, "destination", destination, "error", err)
	}
}

// Deposit credits the account.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (Result, error) {
	acct, err := s.ownedAccount(ctx, input.AccountID, input.RequestorUserID)
	if err != nil {
		return Result{}, err
	}
	rec, err := s.ledger.Deposit(ctx, acct.ID, input.Amount)
	if err != nil {
		return Result{}, err
	}
	s.notify(ctx, notification.KindDeposit, acct.OwnerID, rec.Amount,
		fmt.Sprintf("%d was deposited to account %d", rec.Amount, acct.Number))
	return fromRecord(rec), nil
}

// Withdraw debits the account.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Result, error) {
	acct, err := s.ownedAccount(ctx, input.AccountID, input.RequestorUserID)
	if err != nil {
		return Result{}, err
	}
	rec, err := s.ledger.Withdraw(ctx, acct.ID, input.Amount)
	if err != nil {
		return Result{}, err
	}
	s.notify(ctx, notification.KindWithdrawal, acct.OwnerID, rec.Amount,
		fmt.Sprintf("%d was withdrawn from account %d", rec.Amount, acct.Number))
	return fromRecord(rec), nil
}

// Transfer moves funds from the caller's account to the account with the
// given number. Both notifications go out only after the transfer committed.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	from, err := s.ownedAccount(ctx, input.FromAccountID, input.RequestorUserID)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.accounts.GetByNumber(ctx, input.ToAccountNumber)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return TransferResult{}, ledger.ErrAccountNotFound
		}
		return TransferResult{}, err
	}

	res, err := s.ledger.Transfer(ctx, from.ID, to.ID, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	s.notify(ctx, notification.KindTransferSent, from.OwnerID, input.Amount,
		fmt.Sprintf("You sent %d to account %d", input.Amount, to.Number))
	s.notify(ctx, notification.KindTransferReceived, to.OwnerID, input.Amount,
		fmt.Sprintf("You received %d from account %d", input.Amount, from.Number))

	return TransferResult{
		TransferID:  res.TransferID,
		FromBalance: res.Out.BalanceAfter,
		ToBalance:   res.In.BalanceAfter,
		Amount:      input.Amount,
		CompletedAt: res.Out.CreatedAt,
	}, nil
}

// RequestLoan records a loan application for the account.
func (s *Service) RequestLoan(ctx context.Context, input LoanInput) (ledger.Record, error) {
	acct, err := s.ownedAccount(ctx, input.AccountID, input.RequestorUserID)
	if err != nil {
		return ledger.Record{}, err
	}
	rec, err := s.ledger.RequestLoan(ctx, acct.ID, input.Amount)
	if err != nil {
		return ledger.Record{}, err
	}
	s.notify(ctx, notification.KindLoanRequested, acct.OwnerID, rec.Amount,
		fmt.Sprintf("Loan request for %d submitted", rec.Amount))
	return rec, nil
}

// ApproveLoan transitions a requested loan to approved and disburses the
// principal. This is a back-office action, not exposed to account holders.
func (s *Service) ApproveLoan(ctx context.Context, loanID string) (ledger.Record, error) {
	rec, err := s.ledger.ApproveLoan(ctx, loanID)
	if err != nil {
		return ledger.Record{}, err
	}
	if acct, err := s.accounts.Get(ctx, rec.AccountID); err == nil {
		s.notify(ctx, notification.KindLoanApproved, acct.OwnerID, rec.Amount,
			fmt.Sprintf("Your loan of %d was approved", rec.Amount))
	}
	return rec, nil
}

// PayLoan settles one of the caller's approved loans. Ownership is resolved
// from the loan's own account; a loan belonging to someone else reads as not
// found so loan ids leak nothing.
func (s *Service) PayLoan(ctx context.Context, input PayLoanInput) (Result, error) {
	loan, err := s.ledger.Loan(ctx, input.LoanID)
	if err != nil {
		return Result{}, err
	}
	acct, err := s.accounts.Get(ctx, loan.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return Result{}, ledger.ErrLoanNotFound
		}
		return Result{}, err
	}
	if input.RequestorUserID != "" && acct.OwnerID != input.RequestorUserID {
		return Result{}, ledger.ErrLoanNotFound
	}

	rec, err := s.ledger.PayLoan(ctx, input.LoanID)
	if err != nil {
		return Result{}, err
	}
	s.notify(ctx, notification.KindLoanPaid, acct.OwnerID, rec.Amount,
		fmt.Sprintf("Your loan of %d was paid off", rec.Amount))
	return fromRecord(rec), nil
}

// Loans lists the account's loan records.
func (s *Service) Loans(ctx context.Context, accountID, requestor string) ([]ledger.Record, error) {
	acct, err := s.ownedAccount(ctx, accountID, requestor)
	if err != nil {
		return nil, err
	}
	return s.ledger.Loans(ctx, acct.ID)
}

// Statement returns the account's transaction history inside the range along
// with the balance figure the report is headed by.
func (s *Service) Statement(ctx context.Context, input StatementInput) (Statement, error) {
	acct, err := s.ownedAccount(ctx, input.AccountID, input.RequestorUserID)
	if err != nil {
		return Statement{}, err
	}
	r := ledger.Range{From: input.From, To: input.To}
	records, err := s.ledger.History(ctx, acct.ID, r)
	if err != nil {
		return Statement{}, err
	}
	balance, err := s.ledger.BalanceAsOf(ctx, acct.ID, r)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		AccountID:     acct.ID,
		AccountNumber: acct.Number,
		Balance:       balance,
		Records:       records,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}
