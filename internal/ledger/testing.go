package ledger

// SeedBalance is a test helper that sets an account's balance directly when
// using the in-memory ledger. It bypasses the transaction log.
func SeedBalance(l Ledger, accountID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if acct, exists := mem.accounts[accountID]; exists {
			acct.balance = amount
		}
	}
}
