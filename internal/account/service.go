package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/umoja-bank/umoja/internal/ledger"
)

// Service exposes account lifecycle operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds an account service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// OpenInput captures data required to open an account.
type OpenInput struct {
	OwnerID string
	Kind    string
}

// Open provisions an account record and its ledger account.
func (s *Service) Open(ctx context.Context, input OpenInput) (Account, error) {
	if _, err := uuid.Parse(input.OwnerID); err != nil {
		return Account{}, err
	}
	kind := input.Kind
	if kind == "" {
		kind = KindSavings
	}
	if kind != KindSavings && kind != KindCurrent {
		return Account{}, fmt.Errorf("unknown account kind %q", input.Kind)
	}

	acct := Account{
		ID:        uuid.NewString(),
		OwnerID:   input.OwnerID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.ledger.CreateAccount(ctx, acct.ID); err != nil {
		return Account{}, err
	}
	return s.repo.Create(ctx, acct)
}

// Get retrieves account metadata.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber resolves an account from its human-facing number.
func (s *Service) GetByNumber(ctx context.Context, number int64) (Account, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetByOwner retrieves the account owned by the given user.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Account, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

// Balance returns the ledger balance for the account.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	acct, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.ledger.Balance(ctx, acct.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: acct.ID, Amount: amount, AsOf: time.Now().UTC()}, nil
}
