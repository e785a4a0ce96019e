package transactions

import (
	"time"

	"github.com/umoja-bank/umoja/internal/ledger"
)

// AmountRequest is the body shared by deposit, withdraw and loan requests.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// TransferRequest is the body for transfers out of an account.
type TransferRequest struct {
	ToAccountNumber int64 `json:"to_account_number"`
	Amount          int64 `json:"amount"`
}

// OperationResponse is the API shape for a committed single-account operation.
type OperationResponse struct {
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance"`
	CompletedAt   time.Time `json:"completed_at"`
}

// TransferResponse is the API shape for a committed transfer.
type TransferResponse struct {
	TransferID  string    `json:"transfer_id"`
	Amount      int64     `json:"amount"`
	FromBalance int64     `json:"from_balance"`
	ToBalance   int64     `json:"to_balance"`
	CompletedAt time.Time `json:"completed_at"`
}

// RecordResponse is the API shape for one transaction log entry.
type RecordResponse struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Amount         int64     `json:"amount"`
	BalanceAfter   int64     `json:"balance_after"`
	CounterpartyID string    `json:"counterparty_id,omitempty"`
	TransferID     string    `json:"transfer_id,omitempty"`
	LoanID         string    `json:"loan_id,omitempty"`
	LoanStatus     string    `json:"loan_status,omitempty"`
	Seq            int64     `json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}

// StatementResponse is the API shape for the transaction report.
type StatementResponse struct {
	AccountID     string           `json:"account_id"`
	AccountNumber int64            `json:"account_number"`
	Balance       int64            `json:"balance"`
	Records       []RecordResponse `json:"records"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

func toOperationResponse(res Result) OperationResponse {
	return OperationResponse{
		TransactionID: res.TransactionID,
		Kind:          string(res.Kind),
		Amount:        res.Amount,
		Balance:       res.Balance,
		CompletedAt:   res.CompletedAt,
	}
}

func toRecordResponse(rec ledger.Record) RecordResponse {
	return RecordResponse{
		ID:             rec.ID,
		Kind:           string(rec.Kind),
		Amount:         rec.Amount,
		BalanceAfter:   rec.BalanceAfter,
		CounterpartyID: rec.CounterpartyID,
		TransferID:     rec.TransferID,
		LoanID:         rec.LoanID,
		LoanStatus:     string(rec.LoanStatus),
		Seq:            rec.Seq,
		CreatedAt:      rec.CreatedAt,
	}
}

func toRecordResponses(recs []ledger.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	return out
}
