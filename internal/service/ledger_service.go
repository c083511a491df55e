package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
	"group-escrow-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

const (
	directionDeposit  = "deposit"
	directionWithdraw = "withdraw"
)

// LedgerServiceImpl implements ports.LedgerService.
//
// Every operation runs against a single group under a FOR UPDATE row lock, so
// the ledger never sees concurrent mutation of one group. Token-node reads
// happen inside the transaction; the one irreversible step, the token
// transfer, runs only after every check has passed and is followed
// immediately by persist and commit.
type LedgerServiceImpl struct {
	groupRepo  ports.GroupRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	guard      ports.EscrowGuard
	gateway    ports.TokenGateway
	transactor ports.DBTransactor
	admin      domain.Address
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. admin is the fixed
// protocol administrator identity that gates group creation and expense splits.
func NewLedgerService(
	groupRepo ports.GroupRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	guard ports.EscrowGuard,
	gateway ports.TokenGateway,
	transactor ports.DBTransactor,
	admin domain.Address,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		groupRepo:  groupRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		guard:      guard,
		gateway:    gateway,
		transactor: transactor,
		admin:      admin,
		log:        log,
	}
}

// CreateGroup validates the escrow binding against the token node and creates
// a group with the creator as its admin entry. Only the protocol admin may
// create groups.
func (s *LedgerServiceImpl) CreateGroup(ctx context.Context, req ports.CreateGroupRequest) (*domain.Group, error) {
	if req.Caller != s.admin {
		return nil, apperror.ErrNotProtocolAdmin()
	}

	existing, err := s.groupRepo.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check group id: %w", err))
	}
	if existing != nil {
		return nil, apperror.Validation("group id already in use")
	}

	mint, err := s.gateway.GetMint(ctx, req.Currency)
	if err != nil {
		return nil, apperror.ErrTokenNodeError(fmt.Errorf("fetch mint: %w", err))
	}
	escrow, err := s.gateway.GetAccount(ctx, req.Escrow)
	if err != nil {
		return nil, apperror.ErrTokenNodeError(fmt.Errorf("fetch escrow: %w", err))
	}
	if err := s.guard.ValidateEscrowBinding(req.GroupID, req.Currency, mint, escrow); err != nil {
		return nil, err
	}

	group := domain.NewGroup(req.GroupID, req.Currency, req.Escrow, req.Creator, time.Now().UTC())

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.groupRepo.Create(ctx, dbTx, group); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create group: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("group_id", group.ID.String()).
		Str("currency", string(group.Currency)).
		Str("admin", string(req.Creator)).
		Msg("group created")

	return group, nil
}

// GetGroup returns a group by ID.
func (s *LedgerServiceImpl) GetGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get group: %w", err))
	}
	if group == nil {
		return nil, apperror.ErrGroupNotFound()
	}
	return group, nil
}

// GetBalance returns user's ledger balance in the group.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, groupID uuid.UUID, user domain.Address) (int64, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	balance, ok := group.Balance(user)
	if !ok {
		return 0, apperror.ErrUserDoesNotExist()
	}
	return balance, nil
}

// AddUser admits user into the group as an unapproved, zero-balance entry.
func (s *LedgerServiceImpl) AddUser(ctx context.Context, groupID uuid.UUID, caller, user domain.Address) error {
	return s.mutateGroup(ctx, groupID, "user added", func(g *domain.Group) error {
		return g.AddUser(caller, user)
	})
}

// ApproveUser marks the caller's own membership entry as approved.
func (s *LedgerServiceImpl) ApproveUser(ctx context.Context, groupID uuid.UUID, caller domain.Address) error {
	return s.mutateGroup(ctx, groupID, "user approved", func(g *domain.Group) error {
		return g.ApproveUser(caller)
	})
}

// RemoveUser removes user's entry from the group.
func (s *LedgerServiceImpl) RemoveUser(ctx context.Context, groupID uuid.UUID, caller, user domain.Address) error {
	return s.mutateGroup(ctx, groupID, "user removed", func(g *domain.Group) error {
		return g.RemoveUser(caller, user)
	})
}

// TransferAdmin hands the admin slot to newAdmin.
func (s *LedgerServiceImpl) TransferAdmin(ctx context.Context, groupID uuid.UUID, caller, newAdmin domain.Address) error {
	return s.mutateGroup(ctx, groupID, "admin transferred", func(g *domain.Group) error {
		return g.TransferAdmin(caller, newAdmin)
	})
}

// SplitExpense applies one expense split: the payer is credited the total
// cost and each listed user is debited their share, atomically. Only the
// protocol admin may submit splits.
func (s *LedgerServiceImpl) SplitExpense(ctx context.Context, req ports.SplitExpenseRequest) (*domain.Group, error) {
	if req.Caller != s.admin {
		return nil, apperror.ErrNotProtocolAdmin()
	}

	var result *domain.Group
	err := s.mutateGroup(ctx, req.GroupID, "expense split", func(g *domain.Group) error {
		if err := g.SplitExpense(req.Payer, req.TotalCost, req.Users, req.Amounts); err != nil {
			return err
		}
		result = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deposit moves tokens from the caller's account into the group escrow and
// credits the caller's ledger balance. Idempotent on (group, caller, reference).
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.FundsRequest) (*ports.FundsResult, error) {
	return s.processFunds(ctx, req, directionDeposit)
}

// Withdraw moves tokens from the group escrow to the caller's account and
// debits the caller's ledger balance. Idempotent on (group, caller, reference).
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.FundsRequest) (*ports.FundsResult, error) {
	return s.processFunds(ctx, req, directionWithdraw)
}

// mutateGroup runs one membership mutation under the group row lock:
// lock, mutate in memory, persist the full balance list, commit.
func (s *LedgerServiceImpl) mutateGroup(ctx context.Context, groupID uuid.UUID, action string, mutate func(*domain.Group) error) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	group, err := s.groupRepo.GetByIDForUpdate(ctx, dbTx, groupID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock group: %w", err))
	}
	if group == nil {
		return apperror.ErrGroupNotFound()
	}

	if err := mutate(group); err != nil {
		return err
	}

	if err := s.groupRepo.SaveMembers(ctx, dbTx, group); err != nil {
		return apperror.InternalError(fmt.Errorf("save members: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("group_id", groupID.String()).
		Int("members", len(group.Balances)).
		Msg(action)

	return nil
}

// processFunds is the shared deposit/withdraw algorithm. Ordering is strict:
// lock, durable replay check, token-node reads, guard checks, in-memory ledger
// mutation, key reservation, token transfer, then persist and commit. The
// group row lock serializes same-group requests, so the replay check runs
// under it; the transfer is irreversible, so the idempotency key is reserved
// in the transaction before it fires and a racing duplicate is answered with
// the stored result instead of a second movement.
func (s *LedgerServiceImpl) processFunds(ctx context.Context, req ports.FundsRequest, direction string) (*ports.FundsResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrAmountIsNotPositive()
	}

	idempKey := domain.BuildFundsIdempotencyKey(req.GroupID, req.Caller, req.ReferenceID)

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalCachedResult(cached)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	group, err := s.groupRepo.GetByIDForUpdate(ctx, dbTx, req.GroupID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock group: %w", err))
	}
	if group == nil {
		return nil, apperror.ErrGroupNotFound()
	}

	// Layer 2: durable idempotency check, under the group row lock so a
	// request waiting on the lock observes the winner's committed log.
	idempLog, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return s.unmarshalCachedResult(idempLog.ResponseJSON)
	}

	mint, err := s.gateway.GetMint(ctx, group.Currency)
	if err != nil {
		return nil, apperror.ErrTokenNodeError(fmt.Errorf("fetch mint: %w", err))
	}
	escrow, err := s.gateway.GetAccount(ctx, req.Escrow)
	if err != nil {
		return nil, apperror.ErrTokenNodeError(fmt.Errorf("fetch escrow: %w", err))
	}
	account, err := s.gateway.GetAccount(ctx, req.Account)
	if err != nil {
		return nil, apperror.ErrTokenNodeError(fmt.Errorf("fetch counterparty account: %w", err))
	}

	var transfer ports.TokenTransfer
	switch direction {
	case directionDeposit:
		if err := s.guard.ValidateDeposit(group, mint, escrow, account, req.Caller); err != nil {
			return nil, err
		}
		if err := group.ChangeBalance(req.Caller, req.Amount); err != nil {
			return nil, err
		}
		transfer = ports.TokenTransfer{
			Source:      req.Account,
			Destination: group.Escrow,
			Authority:   req.Caller,
			Amount:      req.Amount,
		}
	case directionWithdraw:
		if err := s.guard.ValidateWithdraw(group, mint, escrow, account, req.Caller, req.Amount); err != nil {
			return nil, err
		}
		if err := group.ChangeBalance(req.Caller, -req.Amount); err != nil {
			return nil, err
		}
		transfer = ports.TokenTransfer{
			Source:      group.Escrow,
			Destination: req.Account,
			Authority:   domain.DeriveEscrowAuthority(group.ID),
			Amount:      req.Amount,
		}
	default:
		return nil, apperror.InternalError(fmt.Errorf("unknown funds direction %q", direction))
	}

	now := time.Now().UTC()
	newBalance, _ := group.Balance(req.Caller)
	result := &ports.FundsResult{
		GroupID:     group.ID,
		User:        req.Caller,
		Direction:   direction,
		Amount:      req.Amount,
		NewBalance:  newBalance,
		ReferenceID: req.ReferenceID,
		ProcessedAt: now,
	}

	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}

	// Reserve the key before the irreversible transfer. A duplicate means a
	// concurrent request with the same reference won the race; answer with its
	// stored result. If the transfer below fails, the rollback releases the
	// reservation so the reference can be retried.
	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
		Key:          idempKey,
		GroupID:      group.ID,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			replay, rerr := s.idempRepo.Get(ctx, idempKey)
			if rerr != nil || replay == nil {
				return nil, apperror.InternalError(fmt.Errorf("read replayed idempotency log: %w", rerr))
			}
			return s.unmarshalCachedResult(replay.ResponseJSON)
		}
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	// Point of no return: the token moves on the external network here.
	if err := s.gateway.Transfer(ctx, transfer); err != nil {
		return nil, apperror.ErrTokenNodeError(fmt.Errorf("token transfer: %w", err))
	}

	if err := s.groupRepo.SaveMembers(ctx, dbTx, group); err != nil {
		s.log.Error().Err(err).Str("key", idempKey).Msg("ledger persist failed after token transfer")
		return nil, apperror.InternalError(fmt.Errorf("save members: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).Str("key", idempKey).Msg("commit failed after token transfer")
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
	}

	s.log.Info().
		Str("group_id", group.ID.String()).
		Str("user", string(req.Caller)).
		Str("direction", direction).
		Int64("amount", req.Amount).
		Int64("new_balance", newBalance).
		Msg("funds processed")

	return result, nil
}

// unmarshalCachedResult deserializes a cached funds result.
func (s *LedgerServiceImpl) unmarshalCachedResult(data []byte) (*ports.FundsResult, error) {
	result := &ports.FundsResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	return result, nil
}
