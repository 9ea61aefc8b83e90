package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NotAPartyError is an authorization failure: the caller is not one of the
// two match participants. Never swallowed.
type NotAPartyError struct {
	MatchID uuid.UUID
	UserID  uuid.UUID
}

func (e NotAPartyError) Error() string {
	return fmt.Sprintf("user %s is not a party to match %s", e.UserID, e.MatchID)
}

type AlreadyActiveError struct {
	MatchID uuid.UUID
}

func (e AlreadyActiveError) Error() string {
	return fmt.Sprintf("match %s has already been activated", e.MatchID)
}

// NotActiveError: the chat has not been unlocked yet (agreement handshake
// incomplete or match cancelled).
type NotActiveError struct {
	MatchID uuid.UUID
}

func (e NotActiveError) Error() string {
	return fmt.Sprintf("chat for match %s is locked until both parties agree to meet", e.MatchID)
}

// ExpiredError: the chat window has closed; content is no longer
// accessible.
type ExpiredError struct {
	MatchID uuid.UUID
}

func (e ExpiredError) Error() string {
	return fmt.Sprintf("chat for match %s has expired", e.MatchID)
}

type NotFoundError struct {
	MatchID uuid.UUID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("match %s not found", e.MatchID)
}
