package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateIdempotencyKey reports that another request already reserved the
// same replay-protection key.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")

// IdempotencyLog caches the result of a completed deposit or withdrawal so a
// replayed request returns the original outcome instead of moving tokens twice.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "group_id:caller:reference_id"
	GroupID      uuid.UUID `json:"group_id"`
	ResponseJSON []byte    `json:"response_json"` // Cached response to return
	CreatedAt    time.Time `json:"created_at"`
}

// BuildFundsIdempotencyKey constructs the replay-protection key for deposit
// and withdraw requests.
func BuildFundsIdempotencyKey(groupID uuid.UUID, caller Address, referenceID string) string {
	return groupID.String() + ":" + string(caller) + ":" + referenceID
}
