package postgres

import (
	"context"
	"errors"
	"fmt"

	"group-escrow-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GroupRepo implements ports.GroupRepository.
//
// The balance list lives in group_members keyed by (group_id, position);
// position 0 is the admin entry. SaveMembers rewrites the whole list, which
// keeps positions authoritative after removals and admin swaps. Lists are
// capped at 50 entries so the rewrite stays cheap.
type GroupRepo struct {
	pool Pool
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(pool Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

// Create inserts a new group and its initial member list within a transaction.
func (r *GroupRepo) Create(ctx context.Context, tx pgx.Tx, g *domain.Group) error {
	query := `INSERT INTO groups (id, currency, escrow, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, query, g.ID, g.Currency, g.Escrow, g.CreatedAt, g.UpdatedAt); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return r.insertMembers(ctx, tx, g)
}

// GetByID fetches a group and its ordered member list (without locking).
func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT id, currency, escrow, created_at, updated_at FROM groups WHERE id = $1`

	g := &domain.Group{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Currency, &g.Escrow, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_address, balance, approved FROM group_members WHERE group_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get group members: %w", err)
	}
	g.Balances, err = scanMembers(rows)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetByIDForUpdate fetches a group with a pessimistic row lock on the group
// record. This MUST be called within a transaction; the lock serializes all
// ledger operations on the group.
func (r *GroupRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT id, currency, escrow, created_at, updated_at FROM groups WHERE id = $1 FOR UPDATE`

	g := &domain.Group{}
	err := tx.QueryRow(ctx, query, id).Scan(&g.ID, &g.Currency, &g.Escrow, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group for update: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT user_address, balance, approved FROM group_members WHERE group_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get group members: %w", err)
	}
	g.Balances, err = scanMembers(rows)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// SaveMembers replaces the group's member list with the in-memory state and
// bumps the group's updated_at. Must run inside the transaction that locked
// the group.
func (r *GroupRepo) SaveMembers(ctx context.Context, tx pgx.Tx, g *domain.Group) error {
	if _, err := tx.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1`, g.ID); err != nil {
		return fmt.Errorf("clear group members: %w", err)
	}
	if err := r.insertMembers(ctx, tx, g); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `UPDATE groups SET updated_at = NOW() WHERE id = $1`, g.ID)
	if err != nil {
		return fmt.Errorf("touch group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group not found: %s", g.ID)
	}
	return nil
}

func (r *GroupRepo) insertMembers(ctx context.Context, tx pgx.Tx, g *domain.Group) error {
	query := `INSERT INTO group_members (group_id, position, user_address, balance, approved)
		VALUES ($1, $2, $3, $4, $5)`

	for i, entry := range g.Balances {
		if _, err := tx.Exec(ctx, query, g.ID, i, entry.User, entry.Balance, entry.Approved); err != nil {
			return fmt.Errorf("insert group member %d: %w", i, err)
		}
	}
	return nil
}

func scanMembers(rows pgx.Rows) ([]domain.UserBalance, error) {
	defer rows.Close()

	balances := make([]domain.UserBalance, 0, domain.MaxGroupUsers)
	for rows.Next() {
		var entry domain.UserBalance
		if err := rows.Scan(&entry.User, &entry.Balance, &entry.Approved); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		balances = append(balances, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return balances, nil
}
