package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is append-only. The serial ID doubles as the per-channel
// ordering: readers always see messages in the order appends committed.
type Message struct {
	ID        int64     `db:"id"`
	MatchID   uuid.UUID `db:"match_id"`
	SenderID  uuid.UUID `db:"sender_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}
