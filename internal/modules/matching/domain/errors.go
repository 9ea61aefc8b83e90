package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Policy errors. Surfaced to the caller as rejected requests; retrying
// without a state change reproduces the same outcome.

type CooldownError struct {
	Until *time.Time
}

func (e CooldownError) Error() string {
	if e.Until == nil {
		return "matching is on cooldown until your current match resolves"
	}

	return fmt.Sprintf("matching is on cooldown until %s", e.Until.Format(time.RFC3339))
}

type PoolExpiredError struct {
	PoolID uuid.UUID
}

func (e PoolExpiredError) Error() string {
	return fmt.Sprintf("pool %s does not exist or has expired", e.PoolID)
}

type NotPoolOwnerError struct {
	PoolID uuid.UUID
	UserID uuid.UUID
}

func (e NotPoolOwnerError) Error() string {
	return fmt.Sprintf("user %s does not own pool %s", e.UserID, e.PoolID)
}

type InvalidTargetError struct {
	TargetID uuid.UUID
}

func (e InvalidTargetError) Error() string {
	return fmt.Sprintf("user %s is not a member of this pool", e.TargetID)
}

type QuotaExceededError struct {
	Limit int
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("request limit reached: %d per pool", e.Limit)
}
