package domain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Address is an opaque account identity on the external token network:
// a user wallet, a mint, a token-holding account, or a derived authority.
type Address string

// Mint describes a fungible-token currency as recorded on the token node.
type Mint struct {
	Address   Address `json:"address"`
	ProgramID Address `json:"program_id"`
	Decimals  uint8   `json:"decimals"`
}

// TokenAccount is a token-holding account record fetched from the token node.
type TokenAccount struct {
	Address   Address  `json:"address"`
	Mint      Address  `json:"mint"`
	Owner     Address  `json:"owner"`
	ProgramID Address  `json:"program_id"`
	Amount    int64    `json:"amount"`
	Delegate  *Address `json:"delegate,omitempty"`
	Frozen    bool     `json:"frozen"`
}

// escrowAuthoritySeed is the domain-separation tag for escrow authority derivation.
const escrowAuthoritySeed = "authority"

// DeriveEscrowAuthority returns the deterministic authority address unique to
// a group. The group trusts an escrow token account only if it is owned by
// this derived authority.
func DeriveEscrowAuthority(groupID uuid.UUID) Address {
	sum := sha256.Sum256(append([]byte(escrowAuthoritySeed), groupID[:]...))
	return Address(hex.EncodeToString(sum[:]))
}
