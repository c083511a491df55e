package service

import (
	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// EscrowGuardImpl implements ports.EscrowGuard. All checks are pure predicate
// evaluation over account records already fetched from the token node; the
// guard never mutates and never performs I/O.
//
// Check order is fixed: presence, program consistency, escrow binding, escrow
// flags, counterparty binding, counterparty flags, then balances. The first
// failed predicate wins.
type EscrowGuardImpl struct{}

// NewEscrowGuard creates a new EscrowGuardImpl.
func NewEscrowGuard() *EscrowGuardImpl {
	return &EscrowGuardImpl{}
}

// ValidateEscrowBinding checks a mint/escrow pair before it is bound to a new
// group. The escrow must be a clean, dedicated account: correct mint, owned by
// the group's derived authority, no delegate, not frozen.
func (g *EscrowGuardImpl) ValidateEscrowBinding(groupID uuid.UUID, currency domain.Address, mint *domain.Mint, escrow *domain.TokenAccount) error {
	if mint == nil || mint.Address != currency {
		return apperror.ErrInvalidCurrencyAccount()
	}
	if escrow == nil {
		return apperror.ErrInvalidEscrowAccount()
	}
	if escrow.ProgramID != mint.ProgramID {
		return apperror.ErrInconsistentTokenPrograms()
	}
	if escrow.Owner != domain.DeriveEscrowAuthority(groupID) {
		return apperror.ErrInconsistentEscrowOwner()
	}
	if escrow.Mint != currency {
		return apperror.ErrInconsistentEscrowMint()
	}
	if escrow.Delegate != nil {
		return apperror.ErrEscrowHasDelegate()
	}
	if escrow.Frozen {
		return apperror.ErrEscrowIsFrozen()
	}
	return nil
}

// ValidateDeposit checks the escrow and sender accounts for a deposit by
// caller into group's escrow.
func (g *EscrowGuardImpl) ValidateDeposit(group *domain.Group, mint *domain.Mint, escrow, sender *domain.TokenAccount, caller domain.Address) error {
	if err := g.validateEscrow(group, mint, escrow); err != nil {
		return err
	}
	if sender == nil {
		return apperror.ErrInvalidSenderAccount()
	}
	if sender.ProgramID != mint.ProgramID {
		return apperror.ErrInconsistentTokenPrograms()
	}
	if sender.Mint != group.Currency {
		return apperror.ErrInconsistentSenderMint()
	}
	if sender.Owner != caller {
		return apperror.ErrInconsistentSenderOwner()
	}
	if sender.Frozen {
		return apperror.ErrSenderIsFrozen()
	}
	return nil
}

// ValidateWithdraw checks the escrow and recipient accounts for a withdrawal
// by caller, then checks that both the caller's ledger balance and the
// escrow's token balance cover amount.
func (g *EscrowGuardImpl) ValidateWithdraw(group *domain.Group, mint *domain.Mint, escrow, recipient *domain.TokenAccount, caller domain.Address, amount int64) error {
	if err := g.validateEscrow(group, mint, escrow); err != nil {
		return err
	}
	if recipient == nil {
		return apperror.ErrInvalidRecipientAccount()
	}
	if recipient.ProgramID != mint.ProgramID {
		return apperror.ErrInconsistentTokenPrograms()
	}
	if recipient.Mint != group.Currency {
		return apperror.ErrInconsistentRecipientMint()
	}
	if recipient.Owner != caller {
		return apperror.ErrInconsistentRecipientOwner()
	}
	if recipient.Frozen {
		return apperror.ErrRecipientIsFrozen()
	}

	balance, ok := group.Balance(caller)
	if !ok {
		return apperror.ErrUserDoesNotExist()
	}
	if balance < amount {
		return apperror.ErrInsufficientUserBalance()
	}
	if escrow.Amount < amount {
		return apperror.ErrInsufficientEscrowBalance()
	}
	return nil
}

// validateEscrow holds the checks shared by both fund directions: the escrow
// referenced by the request must be the one bound to the group, owned by the
// group's derived authority, holding the group currency, delegate-free and
// unfrozen.
func (g *EscrowGuardImpl) validateEscrow(group *domain.Group, mint *domain.Mint, escrow *domain.TokenAccount) error {
	if mint == nil || mint.Address != group.Currency {
		return apperror.ErrInvalidCurrencyAccount()
	}
	if escrow == nil {
		return apperror.ErrInvalidEscrowAccount()
	}
	if escrow.Address != group.Escrow {
		return apperror.ErrInconsistentEscrow()
	}
	if escrow.ProgramID != mint.ProgramID {
		return apperror.ErrInconsistentTokenPrograms()
	}
	if escrow.Owner != domain.DeriveEscrowAuthority(group.ID) {
		return apperror.ErrInconsistentEscrowOwner()
	}
	if escrow.Mint != group.Currency {
		return apperror.ErrInconsistentEscrowMint()
	}
	if escrow.Delegate != nil {
		return apperror.ErrEscrowHasDelegate()
	}
	if escrow.Frozen {
		return apperror.ErrEscrowIsFrozen()
	}
	return nil
}
