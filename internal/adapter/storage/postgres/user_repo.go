package postgres

import (
	"context"
	"errors"
	"fmt"

	"group-escrow-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, username, password_hash, display_name, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.DisplayName,
		u.WalletAddress, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, username, password_hash, display_name, wallet_address, created_at, updated_at
		FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get user by id")
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, password_hash, display_name, wallet_address, created_at, updated_at
		FROM users WHERE username = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, username), "get user by username")
}

// GetByWalletAddress fetches a user by wallet address.
func (r *UserRepo) GetByWalletAddress(ctx context.Context, address domain.Address) (*domain.User, error) {
	query := `SELECT id, username, password_hash, display_name, wallet_address, created_at, updated_at
		FROM users WHERE wallet_address = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, address), "get user by wallet address")
}

func (r *UserRepo) scanOne(row pgx.Row, op string) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName,
		&u.WalletAddress, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
