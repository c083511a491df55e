package domain

import (
	"math"
	"time"

	"github.com/google/uuid"

	"group-escrow-ledger/pkg/apperror"
)

// MaxGroupUsers bounds a group's membership. The capacity is small and fixed
// so membership lookup stays a linear scan with no auxiliary index.
const MaxGroupUsers = 50

// UserBalance is one participant's entry in a group ledger.
// Balance is the signed net amount the participant is owed (positive) or owes
// (negative) relative to the pooled escrow, in the currency's smallest unit.
type UserBalance struct {
	User     Address `json:"user"`
	Balance  int64   `json:"balance"`
	Approved bool    `json:"approved"`
}

// Group is one expense-sharing circle: a single currency, a single escrow
// token account, and an ordered, capacity-bounded balance list.
//
// The entry at position 0 is always the group admin. That position changes
// only through TransferAdmin; RemoveUser structurally refuses to touch it.
type Group struct {
	ID        uuid.UUID     `json:"id"`
	Currency  Address       `json:"currency"`
	Escrow    Address       `json:"escrow"`
	Balances  []UserBalance `json:"balances"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewGroup creates a group with the creator admitted as the admin entry,
// balance zero and already approved.
func NewGroup(id uuid.UUID, currency, escrow, creator Address, now time.Time) *Group {
	balances := make([]UserBalance, 1, MaxGroupUsers)
	balances[0] = UserBalance{User: creator, Balance: 0, Approved: true}
	return &Group{
		ID:        id,
		Currency:  currency,
		Escrow:    escrow,
		Balances:  balances,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Admin returns the identity at position 0, or false if the group is empty.
func (g *Group) Admin() (Address, bool) {
	if len(g.Balances) == 0 {
		return "", false
	}
	return g.Balances[0].User, true
}

// Balance returns the ledger balance for user, or false if user is not a member.
func (g *Group) Balance(user Address) (int64, bool) {
	if i := g.find(user); i >= 0 {
		return g.Balances[i].Balance, true
	}
	return 0, false
}

// AddUser appends a zero-balance, unapproved entry for user.
// Only the current admin may add users.
func (g *Group) AddUser(caller, user Address) error {
	if admin, ok := g.Admin(); !ok || admin != caller {
		return apperror.ErrUnauthorizedAdd()
	}
	if len(g.Balances) >= MaxGroupUsers {
		return apperror.ErrGroupAtCapacity()
	}
	if g.find(user) >= 0 {
		return apperror.ErrUserAlreadyExists()
	}
	g.Balances = append(g.Balances, UserBalance{User: user, Balance: 0, Approved: false})
	return nil
}

// ApproveUser marks the caller's own entry as approved. Approval is
// self-service: the caller can only ever approve themselves, so no separate
// target parameter exists.
func (g *Group) ApproveUser(caller Address) error {
	i := g.find(caller)
	if i < 0 {
		return apperror.ErrUserDoesNotExist()
	}
	g.Balances[i].Approved = true
	return nil
}

// RemoveUser deletes user's entry, preserving the order of the remaining
// entries. The admin slot is never removable; a non-zero balance blocks
// removal. Callable by the admin or by the user themself.
func (g *Group) RemoveUser(caller, user Address) error {
	i := g.find(user)
	if i < 0 {
		return apperror.ErrUserDoesNotExist()
	}
	admin, _ := g.Admin()
	if caller != admin && caller != user {
		return apperror.ErrUnauthorizedRemove()
	}
	if i == 0 {
		return apperror.ErrCannotRemoveAdmin()
	}
	if g.Balances[i].Balance != 0 {
		return apperror.ErrUserBalanceNonZero()
	}
	g.Balances = append(g.Balances[:i], g.Balances[i+1:]...)
	return nil
}

// TransferAdmin swaps the entry at position 0 with newAdmin's entry. The swap
// exchanges positions only; the outgoing admin's balance entry stays in the
// list at the former position of the new admin. The target must already be
// approved before taking the admin slot.
func (g *Group) TransferAdmin(caller, newAdmin Address) error {
	if admin, ok := g.Admin(); !ok || admin != caller {
		return apperror.ErrUnauthorizedTransfer()
	}
	i := g.find(newAdmin)
	if i < 0 {
		return apperror.ErrUserDoesNotExist()
	}
	if !g.Balances[i].Approved {
		return apperror.ErrAdminNotApproved()
	}
	g.Balances[0], g.Balances[i] = g.Balances[i], g.Balances[0]
	return nil
}

// ChangeBalance adds delta to user's balance with overflow-checked signed
// arithmetic. The entry must be approved before its balance may move.
func (g *Group) ChangeBalance(user Address, delta int64) error {
	return applyDelta(g.Balances, user, delta)
}

// SplitExpense credits payer by totalCost and debits each user by the
// corresponding amount. All validation (lengths, positivity, membership,
// approval, overflow) happens against a scratch copy; the group is mutated
// only if every delta applies, so a failure leaves no partial state.
func (g *Group) SplitExpense(payer Address, totalCost int64, users []Address, amounts []int64) error {
	if len(users) != len(amounts) {
		return apperror.ErrInconsistentBalanceLengths()
	}
	if totalCost <= 0 {
		return apperror.ErrAmountIsNotPositive()
	}
	for _, amount := range amounts {
		if amount <= 0 {
			return apperror.ErrAmountIsNotPositive()
		}
	}

	scratch := make([]UserBalance, len(g.Balances))
	copy(scratch, g.Balances)

	if err := applyDelta(scratch, payer, totalCost); err != nil {
		return err
	}
	for i, user := range users {
		if err := applyDelta(scratch, user, -amounts[i]); err != nil {
			return err
		}
	}

	g.Balances = scratch
	return nil
}

func (g *Group) find(user Address) int {
	for i := range g.Balances {
		if g.Balances[i].User == user {
			return i
		}
	}
	return -1
}

func applyDelta(balances []UserBalance, user Address, delta int64) error {
	for i := range balances {
		if balances[i].User != user {
			continue
		}
		if !balances[i].Approved {
			return apperror.ErrUserNotApproved()
		}
		next, ok := checkedAdd(balances[i].Balance, delta)
		if !ok {
			return apperror.ErrAmountOverflow()
		}
		balances[i].Balance = next
		return nil
	}
	return apperror.ErrUserDoesNotExist()
}

func checkedAdd(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}
