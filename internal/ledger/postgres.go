package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lockNotAvailable = "55P03"

// PostgresLedger persists account balances and the transaction log in
// PostgreSQL. Per-account serialisation comes from row locks taken with
// SELECT ... FOR UPDATE inside a single transaction per operation; a transfer
// locks both rows in ascending id order. Expected schema:
//
//	accounts(id uuid primary key, balance bigint not null, created_at timestamptz not null)
//	ledger_records(id uuid primary key,
//	    account_id uuid not null references accounts(id),
//	    counterparty_id text, transfer_id text, loan_id text,
//	    kind text not null, amount bigint not null, balance_after bigint not null,
//	    loan_status text, seq bigint not null, created_at timestamptz not null,
//	    unique (account_id, seq))
type PostgresLedger struct {
	db     *pgxpool.Pool
	policy Policy
}

// NewPostgresLedger constructs a Postgres-backed ledger.
func NewPostgresLedger(db *pgxpool.Pool, policy Policy) *PostgresLedger {
	return &PostgresLedger{db: db, policy: policy}
}

// runTx executes fn inside one transaction with the policy lock timeout
// applied, so a contended row lock fails fast instead of queueing forever.
func (l *PostgresLedger) runTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.policy.LockTimeout.Milliseconds())); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// withRetry re-runs fn when the row lock could not be acquired in time.
// Validation failures are terminal and pass through untouched.
func (l *PostgresLedger) withRetry(ctx context.Context, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt <= l.policy.LockRetries; attempt++ {
		err = l.runTx(ctx, fn)
		if err == nil || !isLockTimeout(err) {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrLockTimeout, l.policy.LockRetries+1)
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable
}

// CreateAccount provisions a ledger account row; creating an existing
// account is a no-op.
func (l *PostgresLedger) CreateAccount(ctx context.Context, accountID string) error {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	_, err = l.db.Exec(ctx, `INSERT INTO accounts (id, balance, created_at) VALUES ($1, 0, $2)
        ON CONFLICT (id) DO NOTHING`, acctID, time.Now().UTC())
	return err
}

// Balance returns the committed balance for the account.
func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (int64, error) {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return 0, ErrAccountNotFound
	}
	var balance int64
	if err := l.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, acctID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, acctID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, acctID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

// nextSeq is safe without further locking because the caller holds the
// account row lock for the whole transaction.
func nextSeq(ctx context.Context, tx pgx.Tx, acctID uuid.UUID) (int64, error) {
	var seq int64
	err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_records WHERE account_id = $1`, acctID).Scan(&seq)
	return seq, err
}

func insertRecord(ctx context.Context, tx pgx.Tx, rec Record) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_records
        (id, account_id, counterparty_id, transfer_id, loan_id, kind, amount, balance_after, loan_status, seq, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.MustParse(rec.ID), uuid.MustParse(rec.AccountID),
		nullable(rec.CounterpartyID), nullable(rec.TransferID), nullable(rec.LoanID),
		string(rec.Kind), rec.Amount, rec.BalanceAfter, nullable(string(rec.LoanStatus)),
		rec.Seq, rec.CreatedAt)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (l *PostgresLedger) Deposit(ctx context.Context, accountID string, amount int64) (Record, error) {
	if err := l.policy.ValidateDeposit(amount); err != nil {
		return Record{}, err
	}
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return Record{}, ErrAccountNotFound
	}

	var rec Record
	err = l.withRetry(ctx, func(tx pgx.Tx) error {
		balance, err := lockAccount(ctx, tx, acctID)
		if err != nil {
			return err
		}
		seq, err := nextSeq(ctx, tx, acctID)
		if err != nil {
			return err
		}
		newBalance := balance + amount
		rec = Record{
			ID:           uuid.NewString(),
			AccountID:    accountID,
			Kind:         KindDeposit,
			Amount:       amount,
			BalanceAfter: newBalance,
			Seq:          seq,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, acctID); err != nil {
			return err
		}
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PostgresLedger) Withdraw(ctx context.Context, accountID string, amount int64) (Record, error) {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return Record{}, ErrAccountNotFound
	}

	var rec Record
	err = l.withRetry(ctx, func(tx pgx.Tx) error {
		balance, err := lockAccount(ctx, tx, acctID)
		if err != nil {
			return err
		}
		if err := l.policy.ValidateWithdraw(balance, amount); err != nil {
			return err
		}
		seq, err := nextSeq(ctx, tx, acctID)
		if err != nil {
			return err
		}
		newBalance := balance - amount
		rec = Record{
			ID:           uuid.NewString(),
			AccountID:    accountID,
			Kind:         KindWithdrawal,
			Amount:       amount,
			BalanceAfter: newBalance,
			Seq:          seq,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, acctID); err != nil {
			return err
		}
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PostgresLedger) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	if fromID == toID {
		return TransferResult{}, ErrSameAccountTransfer
	}
	fromAcct, err := uuid.Parse(fromID)
	if err != nil {
		return TransferResult{}, ErrAccountNotFound
	}
	toAcct, err := uuid.Parse(toID)
	if err != nil {
		return TransferResult{}, ErrAccountNotFound
	}

	var result TransferResult
	err = l.withRetry(ctx, func(tx pgx.Tx) error {
		// Lock both rows in ascending id order so concurrent opposite
		// direction transfers cannot deadlock.
		first, second := fromAcct, toAcct
		if second.String() < first.String() {
			first, second = second, first
		}
		firstBal, err := lockAccount(ctx, tx, first)
		if err != nil {
			return err
		}
		secondBal, err := lockAccount(ctx, tx, second)
		if err != nil {
			return err
		}
		fromBalance, toBalance := firstBal, secondBal
		if first != fromAcct {
			fromBalance, toBalance = secondBal, firstBal
		}

		if err := l.policy.ValidateTransfer(fromBalance, amount); err != nil {
			return err
		}

		fromSeq, err := nextSeq(ctx, tx, fromAcct)
		if err != nil {
			return err
		}
		toSeq, err := nextSeq(ctx, tx, toAcct)
		if err != nil {
			return err
		}

		transferID := uuid.NewString()
		now := time.Now().UTC()
		out := Record{
			ID:             uuid.NewString(),
			AccountID:      fromID,
			CounterpartyID: toID,
			TransferID:     transferID,
			Kind:           KindTransferOut,
			Amount:         amount,
			BalanceAfter:   fromBalance - amount,
			Seq:            fromSeq,
			CreatedAt:      now,
		}
		in := Record{
			ID:             uuid.NewString(),
			AccountID:      toID,
			CounterpartyID: fromID,
			TransferID:     transferID,
			Kind:           KindTransferIn,
			Amount:         amount,
			BalanceAfter:   toBalance + amount,
			Seq:            toSeq,
			CreatedAt:      now,
		}

		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, out.BalanceAfter, fromAcct); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, in.BalanceAfter, toAcct); err != nil {
			return err
		}
		if err := insertRecord(ctx, tx, out); err != nil {
			return err
		}
		if err := insertRecord(ctx, tx, in); err != nil {
			return err
		}

		result = TransferResult{TransferID: transferID, Out: out, In: in}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

func (l *PostgresLedger) RequestLoan(ctx context.Context, accountID string, amount int64) (Record, error) {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return Record{}, ErrAccountNotFound
	}

	var rec Record
	err = l.withRetry(ctx, func(tx pgx.Tx) error {
		balance, err := lockAccount(ctx, tx, acctID)
		if err != nil {
			return err
		}
		var approved int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_records
            WHERE account_id = $1 AND kind = $2 AND loan_status = $3`,
			acctID, string(KindLoanRequest), string(LoanApproved)).Scan(&approved); err != nil {
			return err
		}
		if err := l.policy.ValidateLoanRequest(approved); err != nil {
			return err
		}
		seq, err := nextSeq(ctx, tx, acctID)
		if err != nil {
			return err
		}
		rec = Record{
			ID:           uuid.NewString(),
			AccountID:    accountID,
			Kind:         KindLoanRequest,
			Amount:       amount,
			BalanceAfter: balance,
			LoanStatus:   LoanRequested,
			Seq:          seq,
			CreatedAt:    time.Now().UTC(),
		}
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// loanForUpdate locks the account row first, then the loan row, so lock
// order matches every other account mutation.
func loanForUpdate(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (rec Record, balance int64, acctID uuid.UUID, err error) {
	var acctIDVal uuid.UUID
	err = tx.QueryRow(ctx, `SELECT account_id FROM ledger_records WHERE id = $1 AND kind = $2`,
		loanID, string(KindLoanRequest)).Scan(&acctIDVal)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, 0, uuid.Nil, ErrLoanNotFound
	}
	if err != nil {
		return Record{}, 0, uuid.Nil, err
	}

	balance, err = lockAccount(ctx, tx, acctIDVal)
	if err != nil {
		return Record{}, 0, uuid.Nil, err
	}

	var status string
	var createdAt time.Time
	err = tx.QueryRow(ctx, `SELECT amount, loan_status, seq, created_at FROM ledger_records
        WHERE id = $1 FOR UPDATE`, loanID).Scan(&rec.Amount, &status, &rec.Seq, &createdAt)
	if err != nil {
		return Record{}, 0, uuid.Nil, err
	}
	rec.ID = loanID.String()
	rec.AccountID = acctIDVal.String()
	rec.Kind = KindLoanRequest
	rec.LoanStatus = LoanStatus(status)
	rec.CreatedAt = createdAt.UTC()
	return rec, balance, acctIDVal, nil
}

func (l *PostgresLedger) ApproveLoan(ctx context.Context, loanID string) (Record, error) {
	loanUUID, err := uuid.Parse(loanID)
	if err != nil {
		return Record{}, ErrLoanNotFound
	}

	var rec Record
	err = l.withRetry(ctx, func(tx pgx.Tx) error {
		loan, balance, acctID, err := loanForUpdate(ctx, tx, loanUUID)
		if err != nil {
			return err
		}
		if loan.LoanStatus != LoanRequested {
			return ErrLoanNotPending
		}
		newBalance := balance + loan.Amount
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, acctID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE ledger_records SET loan_status = $1, balance_after = $2 WHERE id = $3`,
			string(LoanApproved), newBalance, loanUUID); err != nil {
			return err
		}
		loan.LoanStatus = LoanApproved
		loan.BalanceAfter = newBalance
		rec = loan
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PostgresLedger) PayLoan(ctx context.Context, loanID string) (Record, error) {
	loanUUID, err := uuid.Parse(loanID)
	if err != nil {
		return Record{}, ErrLoanNotFound
	}

	var rec Record
	err = l.withRetry(ctx, func(tx pgx.Tx) error {
		loan, balance, acctID, err := loanForUpdate(ctx, tx, loanUUID)
		if err != nil {
			return err
		}
		if loan.LoanStatus != LoanApproved {
			return ErrLoanNotApproved
		}
		// Payoff must leave a strictly positive balance.
		if loan.Amount >= balance {
			return fmt.Errorf("%w: available balance is %d", ErrInsufficientFunds, balance)
		}
		seq, err := nextSeq(ctx, tx, acctID)
		if err != nil {
			return err
		}
		newBalance := balance - loan.Amount
		rec = Record{
			ID:           uuid.NewString(),
			AccountID:    loan.AccountID,
			LoanID:       loan.ID,
			Kind:         KindLoanPayment,
			Amount:       loan.Amount,
			BalanceAfter: newBalance,
			Seq:          seq,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, acctID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE ledger_records SET loan_status = $1 WHERE id = $2`,
			string(LoanPaid), loanUUID); err != nil {
			return err
		}
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PostgresLedger) Loan(ctx context.Context, loanID string) (Record, error) {
	loanUUID, err := uuid.Parse(loanID)
	if err != nil {
		return Record{}, ErrLoanNotFound
	}

	var (
		acctID    uuid.UUID
		status    *string
		createdAt time.Time
		rec       Record
	)
	err = l.db.QueryRow(ctx, `SELECT account_id, amount, balance_after, loan_status, seq, created_at
        FROM ledger_records WHERE id = $1 AND kind = $2`,
		loanUUID, string(KindLoanRequest)).Scan(&acctID, &rec.Amount, &rec.BalanceAfter, &status, &rec.Seq, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrLoanNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.ID = loanID
	rec.AccountID = acctID.String()
	rec.Kind = KindLoanRequest
	if status != nil {
		rec.LoanStatus = LoanStatus(*status)
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

func (l *PostgresLedger) Loans(ctx context.Context, accountID string) ([]Record, error) {
	return l.queryRecords(ctx, accountID, Range{}, true)
}

func (l *PostgresLedger) History(ctx context.Context, accountID string, r Range) ([]Record, error) {
	return l.queryRecords(ctx, accountID, r, false)
}

func (l *PostgresLedger) queryRecords(ctx context.Context, accountID string, r Range, loansOnly bool) ([]Record, error) {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	// Confirm account existence so an unknown id is distinguishable from an
	// empty history.
	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, acctID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	query := `SELECT id, counterparty_id, transfer_id, loan_id, kind, amount, balance_after, loan_status, seq, created_at
        FROM ledger_records WHERE account_id = $1`
	args := []any{acctID}
	if loansOnly {
		args = append(args, string(KindLoanRequest))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if !r.From.IsZero() {
		args = append(args, r.From.UTC())
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !r.To.IsZero() {
		args = append(args, r.To.UTC())
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY seq ASC"

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id                                       uuid.UUID
			counterparty, transferID, loanID, status *string
			kind                                     string
			createdAt                                time.Time
			rec                                      Record
		)
		if err := rows.Scan(&id, &counterparty, &transferID, &loanID, &kind,
			&rec.Amount, &rec.BalanceAfter, &status, &rec.Seq, &createdAt); err != nil {
			return nil, err
		}
		rec.ID = id.String()
		rec.AccountID = accountID
		rec.Kind = Kind(kind)
		rec.CreatedAt = createdAt.UTC()
		if counterparty != nil {
			rec.CounterpartyID = *counterparty
		}
		if transferID != nil {
			rec.TransferID = *transferID
		}
		if loanID != nil {
			rec.LoanID = *loanID
		}
		if status != nil {
			rec.LoanStatus = LoanStatus(*status)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) BalanceAsOf(ctx context.Context, accountID string, r Range) (int64, error) {
	if r.IsZero() {
		return l.Balance(ctx, accountID)
	}
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return 0, ErrAccountNotFound
	}

	query := `SELECT COALESCE(SUM(CASE
			WHEN kind IN ('deposit', 'transfer_in') THEN amount
			WHEN kind = 'loan_request' THEN CASE WHEN loan_status IN ('approved', 'paid') THEN amount ELSE 0 END
			ELSE -amount
		END), 0) FROM ledger_records WHERE account_id = $1`
	args := []any{acctID}
	if !r.From.IsZero() {
		args = append(args, r.From.UTC())
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !r.To.IsZero() {
		args = append(args, r.To.UTC())
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var sum int64
	if err := l.db.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
