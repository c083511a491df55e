package ports

import (
	"context"
	"time"

	"group-escrow-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// TokenGateway is the client interface to the external token node: the one
// place token accounts are read and the one token-movement primitive. A
// Transfer must be treated as irreversible once requested.
type TokenGateway interface {
	// GetMint fetches a mint record. Returns nil, nil if the address is unknown.
	GetMint(ctx context.Context, address domain.Address) (*domain.Mint, error)
	// GetAccount fetches a token-holding account. Returns nil, nil if unknown.
	GetAccount(ctx context.Context, address domain.Address) (*domain.TokenAccount, error)
	// Transfer moves tokens between holdings under the given authority.
	Transfer(ctx context.Context, transfer TokenTransfer) error
}

// TokenTransfer describes one token movement.
type TokenTransfer struct {
	Source      domain.Address `json:"source"`
	Destination domain.Address `json:"destination"`
	Authority   domain.Address `json:"authority"`
	Amount      int64          `json:"amount"`
}

// EscrowGuard validates external token-account records before any ledger
// mutation or token movement. All methods are pure: no mutation, no I/O;
// the first failed predicate aborts the enclosing operation.
type EscrowGuard interface {
	// ValidateEscrowBinding checks a mint/escrow pair before binding it to a
	// new group identified by groupID.
	ValidateEscrowBinding(groupID uuid.UUID, currency domain.Address, mint *domain.Mint, escrow *domain.TokenAccount) error
	// ValidateDeposit checks the escrow and sender accounts for a deposit by caller.
	ValidateDeposit(group *domain.Group, mint *domain.Mint, escrow, sender *domain.TokenAccount, caller domain.Address) error
	// ValidateWithdraw additionally checks ledger and escrow balances cover amount.
	ValidateWithdraw(group *domain.Group, mint *domain.Mint, escrow, recipient *domain.TokenAccount, caller domain.Address, amount int64) error
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, wallet domain.Address) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID        uuid.UUID
	WalletAddress domain.Address
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// AuthService defines user registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Username      string
	Password      string
	DisplayName   string
	WalletAddress domain.Address
}

// LedgerService is the operation surface of the group ledger. Every method is
// one atomic operation against one group: all validation runs before any
// mutation, and a typed failure leaves no partial state.
type LedgerService interface {
	CreateGroup(ctx context.Context, req CreateGroupRequest) (*domain.Group, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error)
	GetBalance(ctx context.Context, groupID uuid.UUID, user domain.Address) (int64, error)
	AddUser(ctx context.Context, groupID uuid.UUID, caller, user domain.Address) error
	ApproveUser(ctx context.Context, groupID uuid.UUID, caller domain.Address) error
	RemoveUser(ctx context.Context, groupID uuid.UUID, caller, user domain.Address) error
	TransferAdmin(ctx context.Context, groupID uuid.UUID, caller, newAdmin domain.Address) error
	SplitExpense(ctx context.Context, req SplitExpenseRequest) (*domain.Group, error)
	Deposit(ctx context.Context, req FundsRequest) (*FundsResult, error)
	Withdraw(ctx context.Context, req FundsRequest) (*FundsResult, error)
}

// CreateGroupRequest holds validated input for group creation. GroupID is
// chosen by the client so the escrow account can be created under the derived
// authority before the group record exists.
type CreateGroupRequest struct {
	GroupID  uuid.UUID
	Caller   domain.Address // authenticated caller; must be the protocol admin
	Creator  domain.Address // admitted as the admin entry
	Currency domain.Address
	Escrow   domain.Address
}

// SplitExpenseRequest holds validated input for a cost split.
type SplitExpenseRequest struct {
	GroupID   uuid.UUID
	Caller    domain.Address // must be the protocol admin
	Payer     domain.Address
	TotalCost int64
	Users     []domain.Address
	Amounts   []int64
}

// FundsRequest holds validated input for deposit and withdraw.
type FundsRequest struct {
	GroupID     uuid.UUID
	Caller      domain.Address
	Account     domain.Address // sender (deposit) or recipient (withdraw) token account
	Escrow      domain.Address // client-claimed escrow; must match the group record
	Amount      int64
	ReferenceID string
}

// FundsResult is the cached, replayable outcome of a deposit or withdrawal.
type FundsResult struct {
	GroupID     uuid.UUID      `json:"group_id"`
	User        domain.Address `json:"user"`
	Direction   string         `json:"direction"` // "deposit" or "withdraw"
	Amount      int64          `json:"amount"`
	NewBalance  int64          `json:"new_balance"`
	ReferenceID string         `json:"reference_id"`
	ProcessedAt time.Time      `json:"processed_at"`
}
