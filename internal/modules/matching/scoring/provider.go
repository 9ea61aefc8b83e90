package scoring

import (
	"context"

	"github.com/google/uuid"
)

// Meter is a single compatibility reading shown next to a candidate.
type Meter struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Summary maps meter names to readings. The engine treats it as opaque
// payload and attaches it to pool members as-is.
type Summary map[string]Meter

// Provider computes a compatibility summary between a user and a candidate.
// Supplied by an external collaborator; MeterProvider is the default.
type Provider interface {
	Summary(ctx context.Context, userID, candidateID uuid.UUID) (Summary, error)
}
