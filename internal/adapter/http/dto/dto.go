package dto

import (
	"time"

	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password      string `json:"password" binding:"required,min=8,max=128"`
	DisplayName   string `json:"display_name" binding:"required,min=1,max=100"`
	WalletAddress string `json:"wallet_address" binding:"required,min=1,max=128,safe_id"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateGroupRequest is the request body for group creation. The group ID is
// client-chosen so the escrow account can be provisioned under the group's
// derived authority before this call.
type CreateGroupRequest struct {
	GroupID  string `json:"group_id" binding:"required,uuid"`
	Creator  string `json:"creator" binding:"required,min=1,max=128,safe_id"`
	Currency string `json:"currency" binding:"required,min=1,max=128,safe_id"`
	Escrow   string `json:"escrow" binding:"required,min=1,max=128,safe_id"`
}

// AddMemberRequest is the request body for adding a group member.
type AddMemberRequest struct {
	User string `json:"user" binding:"required,min=1,max=128,safe_id"`
}

// TransferAdminRequest is the request body for handing over the admin slot.
type TransferAdminRequest struct {
	NewAdmin string `json:"new_admin" binding:"required,min=1,max=128,safe_id"`
}

// SplitExpenseRequest is the request body for recording an expense split.
type SplitExpenseRequest struct {
	Payer     string   `json:"payer" binding:"required,min=1,max=128,safe_id"`
	TotalCost int64    `json:"total_cost" binding:"required,gt=0"`
	Users     []string `json:"users" binding:"required,min=1,max=50,dive,min=1,max=128,safe_id"`
	Amounts   []int64  `json:"amounts" binding:"required,min=1,max=50"`
}

// FundsRequest is the request body for deposits and withdrawals. Account is
// the caller-owned token account on the other side of the escrow movement.
type FundsRequest struct {
	Account     string `json:"account" binding:"required,min=1,max=128,safe_id"`
	Escrow      string `json:"escrow" binding:"required,min=1,max=128,safe_id"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID string `json:"reference_id" binding:"required,max=100,safe_id"`
}

// MemberResponse is one balance-list entry in a group response.
type MemberResponse struct {
	User     string `json:"user"`
	Balance  int64  `json:"balance"`
	Approved bool   `json:"approved"`
}

// GroupResponse is the response body for group reads and mutations.
type GroupResponse struct {
	ID        string           `json:"id"`
	Currency  string           `json:"currency"`
	Escrow    string           `json:"escrow"`
	Admin     string           `json:"admin"`
	Members   []MemberResponse `json:"members"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// BalanceResponse is the response for a single-member balance query.
type BalanceResponse struct {
	GroupID string `json:"group_id"`
	User    string `json:"user"`
	Balance int64  `json:"balance"`
}

// FundsResponse is the response body for deposits and withdrawals.
type FundsResponse struct {
	GroupID     string `json:"group_id"`
	User        string `json:"user"`
	Direction   string `json:"direction"`
	Amount      int64  `json:"amount"`
	NewBalance  int64  `json:"new_balance"`
	ReferenceID string `json:"reference_id"`
	ProcessedAt string `json:"processed_at"`
}

// ToGroupResponse converts a domain.Group to its DTO.
func ToGroupResponse(g *domain.Group) GroupResponse {
	members := make([]MemberResponse, len(g.Balances))
	for i, entry := range g.Balances {
		members[i] = MemberResponse{
			User:     string(entry.User),
			Balance:  entry.Balance,
			Approved: entry.Approved,
		}
	}
	admin := ""
	if a, ok := g.Admin(); ok {
		admin = string(a)
	}
	return GroupResponse{
		ID:        g.ID.String(),
		Currency:  string(g.Currency),
		Escrow:    string(g.Escrow),
		Admin:     admin,
		Members:   members,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
		UpdatedAt: g.UpdatedAt.Format(time.RFC3339),
	}
}

// ToFundsResponse converts a ports.FundsResult to its DTO.
func ToFundsResponse(r *ports.FundsResult) FundsResponse {
	return FundsResponse{
		GroupID:     r.GroupID.String(),
		User:        string(r.User),
		Direction:   r.Direction,
		Amount:      r.Amount,
		NewBalance:  r.NewBalance,
		ReferenceID: r.ReferenceID,
		ProcessedAt: r.ProcessedAt.Format(time.RFC3339),
	}
}
