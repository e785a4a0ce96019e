package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested account does not exist.
var ErrNotFound = errors.New("account not found")

// Repository persists account metadata. Create assigns the account number.
type Repository interface {
	Create(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	GetByNumber(ctx context.Context, number int64) (Account, error)
	GetByOwner(ctx context.Context, ownerID string) (Account, error)
}

// PostgresRepository stores accounts in PostgreSQL. The bank_accounts table
// assigns numbers from a sequence starting at 100001.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record and returns it with the assigned number.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) (Account, error) {
	acctID, err := uuid.Parse(acct.ID)
	if err != nil {
		return Account{}, err
	}
	ownerID, err := uuid.Parse(acct.OwnerID)
	if err != nil {
		return Account{}, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO bank_accounts (id, owner_id, kind, created_at)
        VALUES ($1, $2, $3, $4) RETURNING number`, acctID, ownerID, acct.Kind, acct.CreatedAt.UTC())
	if err := row.Scan(&acct.Number); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Get fetches account metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, owner_id, number, kind, created_at
        FROM bank_accounts WHERE id = $1`, acctID))
}

// GetByNumber fetches an account by its human-facing number.
func (r *PostgresRepository) GetByNumber(ctx context.Context, number int64) (Account, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, owner_id, number, kind, created_at
        FROM bank_accounts WHERE number = $1`, number))
}

// GetByOwner fetches the account belonging to the given user.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID string) (Account, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, owner_id, number, kind, created_at
        FROM bank_accounts WHERE owner_id = $1`, owner))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (Account, error) {
	var (
		id, ownerID uuid.UUID
		createdAt   time.Time
		acct        Account
	)
	if err := row.Scan(&id, &ownerID, &acct.Number, &acct.Kind, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.ID = id.String()
	acct.OwnerID = ownerID.String()
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}
