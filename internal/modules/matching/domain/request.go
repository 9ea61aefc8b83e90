package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// MatchRequest is one-directional interest, scoped to the pool it was made
// from. Never mutated after insertion.
type MatchRequest struct {
	ID          uuid.UUID `db:"id"`
	PoolID      uuid.UUID `db:"pool_id"`
	RequesterID uuid.UUID `db:"requester_id"`
	TargetID    uuid.UUID `db:"target_id"`
	CreatedAt   time.Time `db:"created_at"`
}

func NewMatchRequest(poolID, requesterID, targetID uuid.UUID, now time.Time) MatchRequest {
	return MatchRequest{
		ID:          uuid.New(),
		PoolID:      poolID,
		RequesterID: requesterID,
		TargetID:    targetID,
		CreatedAt:   now,
	}
}

// CanonicalPair orders two user IDs by their byte representation so that a
// pair always maps to the same (lo, hi) columns regardless of who asked.
func CanonicalPair(a, b uuid.UUID) (lo, hi uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}

	return b, a
}
