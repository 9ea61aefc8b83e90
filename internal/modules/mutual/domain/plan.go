package domain

import (
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// Curated, pre-approved public meeting spots.
var meetingSpots = []string{
	"Campus Café - Central Plaza",
	"Main Library - 2nd Floor Lounge",
	"Student Center - Game Zone",
	"Coffee Day - Near Gate 3",
	"Green Bench - Sports Ground",
	"Food Court - Back Entrance",
}

// assignMeetingPlan picks a spot and a near-term slot (2-6 hours out, on the
// hour) deterministically from the canonical pair and the creation hour, so
// both parties always see the same plan.
func assignMeetingPlan(lo, hi uuid.UUID, now time.Time) (string, time.Time) {
	hour := now.UTC().Truncate(time.Hour)

	h := fnv.New64a()
	h.Write(lo[:])
	h.Write(hi[:])
	h.Write([]byte(hour.Format(time.RFC3339)))
	seed := h.Sum64()

	spot := meetingSpots[seed%uint64(len(meetingSpots))]
	hoursAhead := 2 + int((seed>>8)%5)

	return spot, hour.Add(time.Duration(hoursAhead) * time.Hour)
}
