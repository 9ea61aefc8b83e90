package domain

import (
	"time"

	matching "github.com/chupacabra07-bot/night-campus/internal/modules/matching/domain"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Match is the mutual-interest artifact. Participants are stored in
// canonical (lo, hi) order; a partial unique index over that pair is what
// makes creation exactly-once under concurrent opposite requests.
type Match struct {
	ID     uuid.UUID `db:"id"`
	UserLo uuid.UUID `db:"user_lo"`
	UserHi uuid.UUID `db:"user_hi"`
	Status Status    `db:"status"`

	MeetingLocation string    `db:"meeting_location"`
	MeetingTime     time.Time `db:"meeting_time"`

	LoAgreed bool `db:"lo_agreed"`
	HiAgreed bool `db:"hi_agreed"`

	ChatUnlockedAt *time.Time `db:"chat_unlocked_at"`
	ExpiresAt      *time.Time `db:"expires_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

func NewMatch(a, b uuid.UUID, now time.Time) Match {
	lo, hi := matching.CanonicalPair(a, b)
	location, meetingTime := assignMeetingPlan(lo, hi, now)

	return Match{
		ID:              uuid.New(),
		UserLo:          lo,
		UserHi:          hi,
		Status:          StatusPending,
		MeetingLocation: location,
		MeetingTime:     meetingTime,
		CreatedAt:       now,
	}
}

func (m *Match) Participant(userID uuid.UUID) bool {
	return m.UserLo == userID || m.UserHi == userID
}

func (m *Match) Other(userID uuid.UUID) uuid.UUID {
	if m.UserLo == userID {
		return m.UserHi
	}

	return m.UserLo
}

func (m *Match) Agreed(userID uuid.UUID) bool {
	if m.UserLo == userID {
		return m.LoAgreed
	}

	return m.HiAgreed
}

// ClockExpired reports whether an active match has outlived its chat TTL,
// independently of whether the sweep has stamped it yet.
func (m *Match) ClockExpired(now time.Time) bool {
	return m.Status == StatusActive && m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// ChatOpen reports whether messages may be appended or read right now.
func (m *Match) ChatOpen(now time.Time) bool {
	return m.Status == StatusActive && m.ExpiresAt != nil && now.Before(*m.ExpiresAt)
}

// RecordAgreement sets the calling participant's flag. When both flags are
// set, the match activates and the chat TTL starts. Recording against a
// non-pending match is a no-op; only strangers get an error.
func (m *Match) RecordAgreement(userID uuid.UUID, now time.Time, chatTTL time.Duration) (activated bool, err error) {
	if !m.Participant(userID) {
		return false, NotAPartyError{MatchID: m.ID, UserID: userID}
	}

	if m.Status != StatusPending {
		return false, nil
	}

	if m.UserLo == userID {
		m.LoAgreed = true
	} else {
		m.HiAgreed = true
	}

	if m.LoAgreed && m.HiAgreed {
		m.Status = StatusActive
		unlocked := now
		expires := now.Add(chatTTL)
		m.ChatUnlockedAt = &unlocked
		m.ExpiresAt = &expires
		return true, nil
	}

	return false, nil
}

// Cancel withdraws a pending match. Active and expired matches cannot be
// cancelled; cancelling twice is a no-op.
func (m *Match) Cancel(userID uuid.UUID) error {
	if !m.Participant(userID) {
		return NotAPartyError{MatchID: m.ID, UserID: userID}
	}

	switch m.Status {
	case StatusPending:
		m.Status = StatusCancelled
		return nil
	case StatusCancelled:
		return nil
	default:
		return AlreadyActiveError{MatchID: m.ID}
	}
}

// Expire moves an active match past its TTL into the expired state. Safe to
// call repeatedly and long after the deadline passed.
func (m *Match) Expire(now time.Time) bool {
	if !m.ClockExpired(now) {
		return false
	}

	m.Status = StatusExpired
	return true
}

// EffectiveStatus folds the lazy TTL check into the stored status, so reads
// never depend on sweep timing.
func (m *Match) EffectiveStatus(now time.Time) Status {
	if m.ClockExpired(now) {
		return StatusExpired
	}

	return m.Status
}
