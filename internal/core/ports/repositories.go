package ports

import (
	"context"

	"group-escrow-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for registered users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByWalletAddress(ctx context.Context, address domain.Address) (*domain.User, error)
}

// GroupRepository defines persistence operations for groups and their balance
// lists. Methods accepting pgx.Tx run inside transaction blocks; the hosting
// transaction plus the FOR UPDATE row lock give each ledger operation
// exclusive access to one group for its whole duration.
type GroupRepository interface {
	Create(ctx context.Context, tx pgx.Tx, group *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Group, error)
	SaveMembers(ctx context.Context, tx pgx.Tx, group *domain.Group) error
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
