package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pool is one matching cycle offered to a single user. Membership is fixed
// at creation and the pool is only ever read after that.
type Pool struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   uuid.UUID `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func NewPool(ownerID uuid.UUID, now time.Time, validity time.Duration) Pool {
	return Pool{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		ExpiresAt: now.Add(validity),
	}
}

func (p Pool) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type PoolMember struct {
	PoolID   uuid.UUID `db:"pool_id"`
	MemberID uuid.UUID `db:"member_id"`
	Position int       `db:"position"`
}

// SelectCandidates bounds and sanitizes a candidate sample: deduplicates,
// drops the owner and anyone in the exclusion set, and cuts off at size.
// Order of the incoming sample is preserved.
func SelectCandidates(sample []uuid.UUID, ownerID uuid.UUID, excluded map[uuid.UUID]struct{}, size int) []uuid.UUID {
	selected := make([]uuid.UUID, 0, size)
	seen := make(map[uuid.UUID]struct{}, size)

	for _, candidate := range sample {
		if len(selected) == size {
			break
		}

		if candidate == ownerID {
			continue
		}

		if _, ok := excluded[candidate]; ok {
			continue
		}

		if _, ok := seen[candidate]; ok {
			continue
		}

		seen[candidate] = struct{}{}
		selected = append(selected, candidate)
	}

	return selected
}
