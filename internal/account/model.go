package account

import "time"

// Kinds of bank account a holder can open.
const (
	KindSavings = "savings"
	KindCurrent = "current"
)

// Account is the metadata for one bank account. The authoritative balance
// lives in the ledger, keyed by the account id.
type Account struct {
	ID        string
	OwnerID   string
	Number    int64 // human-facing account number used for transfers
	Kind      string
	CreatedAt time.Time
}

// Balance is a point-in-time read of an account's funds.
type Balance struct {
	AccountID string
	Amount    int64
	AsOf      time.Time
}
