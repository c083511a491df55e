package domain

import (
	"time"

	"github.com/google/uuid"
)

// User binds a login identity to a wallet address. The wallet address is the
// identity that appears in group balance lists and owns token accounts.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // Never expose
	DisplayName   string    `json:"display_name"`
	WalletAddress Address   `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
