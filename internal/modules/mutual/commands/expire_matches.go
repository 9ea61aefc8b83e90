package commands

import (
	"context"
	"database/sql"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/notifications"

	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
)

// ExpireMatchesCommand sweeps active matches past their chat TTL. Every
// read/write path re-checks timestamps on its own, so this exists to emit
// the lifecycle notification and settle the stored status, and it is safe
// to run any number of times.
type ExpireMatchesCommand struct{}

type ExpireMatchesResponse struct {
	MatchesExpired int
}

type expiredMatch struct {
	ID     uuid.UUID `db:"id"`
	UserLo uuid.UUID `db:"user_lo"`
	UserHi uuid.UUID `db:"user_hi"`
}

type ExpireMatchesCommandHandler struct {
	db     *sql.DB
	fanout notifications.Fanout
}

func NewExpireMatchesCommandHandler(db *sql.DB, fanout notifications.Fanout) *ExpireMatchesCommandHandler {
	return &ExpireMatchesCommandHandler{db: db, fanout: fanout}
}

func (h *ExpireMatchesCommandHandler) Handle(
	ctx context.Context,
	_ ExpireMatchesCommand,
) (ExpireMatchesResponse, error) {
	const stmt = `
		UPDATE
			mutual_match
		SET
			status = 'expired'
		WHERE
			status = 'active' AND expires_at <= $1
		RETURNING
			id, user_lo, user_hi;`
	expired, err := tql.Query[expiredMatch](ctx, h.db, stmt, time.Now().UTC())
	if err != nil {
		return ExpireMatchesResponse{}, err
	}

	for _, match := range expired {
		if err := h.fanout.Publish(ctx, notifications.ChatExpired(match.ID, match.UserLo, match.UserHi)); err != nil {
			core.LogError(ctx, "failed to publish chat expired event")
		}
	}

	return ExpireMatchesResponse{MatchesExpired: len(expired)}, nil
}
