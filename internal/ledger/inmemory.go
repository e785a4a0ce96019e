package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memAccount struct {
	balance int64
	seq     int64
	records []*Record
}

// inMemoryLedger keeps the full ledger state in process memory. Mutations are
// serialised through the per-account lock table; mu guards the maps and
// record slices so read queries stay consistent without taking account locks.
type inMemoryLedger struct {
	policy Policy
	locks  *lockTable

	mu       sync.RWMutex
	accounts map[string]*memAccount
	loans    map[string]*Record
}

// NewInMemory creates a concurrency-safe in-memory ledger. It backs unit
// tests and local development without Postgres.
func NewInMemory(policy Policy) Ledger {
	return &inMemoryLedger{
		policy:   policy,
		locks:    newLockTable(),
		accounts: make(map[string]*memAccount),
		loans:    make(map[string]*Record),
	}
}

func (l *inMemoryLedger) CreateAccount(_ context.Context, accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[accountID]; !exists {
		l.accounts[accountID] = &memAccount{}
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, accountID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return acct.balance, nil
}

// appendLocked stamps id, seq, balance_after and timestamp onto rec and adds
// it to the account's log. Callers hold both the account lock and mu.
func (l *inMemoryLedger) appendLocked(acct *memAccount, rec Record) *Record {
	acct.seq++
	rec.ID = uuid.NewString()
	rec.Seq = acct.seq
	rec.BalanceAfter = acct.balance
	rec.CreatedAt = time.Now().UTC()
	stored := rec
	acct.records = append(acct.records, &stored)
	return &stored
}

func (l *inMemoryLedger) Deposit(ctx context.Context, accountID string, amount int64) (Record, error) {
	if err := l.policy.ValidateDeposit(amount); err != nil {
		return Record{}, err
	}
	if err := l.locks.acquire(ctx, accountID, l.policy.LockTimeout); err != nil {
		return Record{}, err
	}
	defer l.locks.release(accountID)

	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return Record{}, ErrAccountNotFound
	}
	acct.balance += amount
	rec := l.appendLocked(acct, Record{AccountID: accountID, Kind: KindDeposit, Amount: amount})
	return *rec, nil
}

func (l *inMemoryLedger) Withdraw(ctx context.Context, accountID string, amount int64) (Record, error) {
	if err := l.locks.acquire(ctx, accountID, l.policy.LockTimeout); err != nil {
		return Record{}, err
	}
	defer l.locks.release(accountID)

	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return Record{}, ErrAccountNotFound
	}
	if err := l.policy.ValidateWithdraw(acct.balance, amount); err != nil {
		return Record{}, err
	}
	acct.balance -= amount
	rec := l.appendLocked(acct, Record{AccountID: accountID, Kind: KindWithdrawal, Amount: amount})
	return *rec, nil
}

func (l *inMemoryLedger) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	if fromID == toID {
		return TransferResult{}, ErrSameAccountTransfer
	}
	if err := l.locks.acquireBoth(ctx, fromID, toID, l.policy.LockTimeout); err != nil {
		return TransferResult{}, err
	}
	defer l.locks.releaseBoth(fromID, toID)

	l.mu.Lock()
	defer l.mu.Unlock()
	from, ok := l.accounts[fromID]
	if !ok {
		return TransferResult{}, ErrAccountNotFound
	}
	to, ok := l.accounts[toID]
	if !ok {
		return TransferResult{}, ErrAccountNotFound
	}
	if err := l.policy.ValidateTransfer(from.balance, amount); err != nil {
		return TransferResult{}, err
	}

	transferID := uuid.NewString()
	from.balance -= amount
	out := l.appendLocked(from, Record{
		AccountID:      fromID,
		CounterpartyID: toID,
		TransferID:     transferID,
		Kind:           KindTransferOut,
		Amount:         amount,
	})
	to.balance += amount
	in := l.appendLocked(to, Record{
		AccountID:      toID,
		CounterpartyID: fromID,
		TransferID:     transferID,
		Kind:           KindTransferIn,
		Amount:         amount,
	})

	return TransferResult{TransferID: transferID, Out: *out, In: *in}, nil
}

func (l *inMemoryLedger) RequestLoan(ctx context.Context, accountID string, amount int64) (Record, error) {
	if err := l.locks.acquire(ctx, accountID, l.policy.LockTimeout); err != nil {
		return Record{}, err
	}
	defer l.locks.release(accountID)

	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return Record{}, ErrAccountNotFound
	}
	approved := 0
	for _, rec := range acct.records {
		if rec.Kind == KindLoanRequest && rec.LoanStatus == LoanApproved {
			approved++
		}
	}
	if err := l.policy.ValidateLoanRequest(approved); err != nil {
		return Record{}, err
	}
	rec := l.appendLocked(acct, Record{
		AccountID:  accountID,
		Kind:       KindLoanRequest,
		Amount:     amount,
		LoanStatus: LoanRequested,
	})
	l.loans[rec.ID] = rec
	return *rec, nil
}

func (l *inMemoryLedger) ApproveLoan(ctx context.Context, loanID string) (Record, error) {
	accountID, err := l.loanAccount(loanID)
	if err != nil {
		return Record{}, err
	}
	if err := l.locks.acquire(ctx, accountID, l.policy.LockTimeout); err != nil {
		return Record{}, err
	}
	defer l.locks.release(accountID)

	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.loans[loanID]
	if !ok {
		return Record{}, ErrLoanNotFound
	}
	if loan.LoanStatus != LoanRequested {
		return Record{}, ErrLoanNotPending
	}
	acct := l.accounts[loan.AccountID]
	acct.balance += loan.Amount
	loan.LoanStatus = LoanApproved
	loan.BalanceAfter = acct.balance
	return *loan, nil
}

func (l *inMemoryLedger) PayLoan(ctx context.Context, loanID string) (Record, error) {
	accountID, err := l.loanAccount(loanID)
	if err != nil {
		return Record{}, err
	}
	if err := l.locks.acquire(ctx, accountID, l.policy.LockTimeout); err != nil {
		return Record{}, err
	}
	defer l.locks.release(accountID)

	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.loans[loanID]
	if !ok {
		return Record{}, ErrLoanNotFound
	}
	if loan.LoanStatus != LoanApproved {
		return Record{}, ErrLoanNotApproved
	}
	acct := l.accounts[loan.AccountID]
	// Payoff must leave a strictly positive balance.
	if loan.Amount >= acct.balance {
		return Record{}, ErrInsufficientFunds
	}
	acct.balance -= loan.Amount
	rec := l.appendLocked(acct, Record{
		AccountID: loan.AccountID,
		LoanID:    loanID,
		Kind:      KindLoanPayment,
		Amount:    loan.Amount,
	})
	loan.LoanStatus = LoanPaid
	return *rec, nil
}

func (l *inMemoryLedger) loanAccount(loanID string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loan, ok := l.loans[loanID]
	if !ok {
		return "", ErrLoanNotFound
	}
	return loan.AccountID, nil
}

func (l *inMemoryLedger) Loan(_ context.Context, loanID string) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loan, ok := l.loans[loanID]
	if !ok {
		return Record{}, ErrLoanNotFound
	}
	return *loan, nil
}

func (l *inMemoryLedger) Loans(_ context.Context, accountID string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	var loans []Record
	for _, rec := range acct.records {
		if rec.Kind == KindLoanRequest {
			loans = append(loans, *rec)
		}
	}
	return loans, nil
}

func (l *inMemoryLedger) History(_ context.Context, accountID string, r Range) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	var out []Record
	for _, rec := range acct.records {
		if r.Contains(rec.CreatedAt) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (l *inMemoryLedger) BalanceAsOf(_ context.Context, accountID string, r Range) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if r.IsZero() {
		return acct.balance, nil
	}
	var sum int64
	for _, rec := range acct.records {
		if r.Contains(rec.CreatedAt) {
			sum += rec.Signed()
		}
	}
	return sum, nil
}
