package commands

import (
	"context"
	"database/sql"
	"time"

	"github.com/eskrenkovic/tql"
)

// ExpirePoolsCommand reclaims pools past their validity window. Unconsumed
// requests referencing them go with them (FK cascade). Expiry is already
// enforced lazily on every read path; this sweep only frees storage.
type ExpirePoolsCommand struct{}

type ExpirePoolsResponse struct {
	PoolsRemoved int64
}

type ExpirePoolsCommandHandler struct {
	db *sql.DB
}

func NewExpirePoolsCommandHandler(db *sql.DB) *ExpirePoolsCommandHandler {
	return &ExpirePoolsCommandHandler{db: db}
}

func (h *ExpirePoolsCommandHandler) Handle(
	ctx context.Context,
	_ ExpirePoolsCommand,
) (ExpirePoolsResponse, error) {
	const stmt = `
		DELETE FROM
			match_pool
		WHERE
			expires_at <= $1;`
	result, err := tql.Exec(ctx, h.db, stmt, time.Now().UTC())
	if err != nil {
		return ExpirePoolsResponse{}, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return ExpirePoolsResponse{}, err
	}

	return ExpirePoolsResponse{PoolsRemoved: removed}, nil
}
