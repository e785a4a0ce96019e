package account

import (
	"context"
	"errors"
	"sync"
)

const firstAccountNumber = 100001

type memoryRepository struct {
	mu         sync.RWMutex
	storage    map[string]Account
	nextNumber int64
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Account), nextNumber: firstAccountNumber}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[acct.ID]; exists {
		return Account{}, errors.New("account exists")
	}
	acct.Number = r.nextNumber
	r.nextNumber++
	r.storage[acct.ID] = acct
	return acct, nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *memoryRepository) GetByNumber(_ context.Context, number int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.storage {
		if acct.Number == number {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) GetByOwner(_ context.Context, ownerID string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.storage {
		if acct.OwnerID == ownerID {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}
