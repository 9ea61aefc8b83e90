package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

// CancelMatchCommand withdraws a pending match before activation. Active
// matches cannot be cancelled; they run out their chat TTL instead.
type CancelMatchCommand struct {
	MatchID uuid.UUID
	UserID  uuid.UUID
}

func (c CancelMatchCommand) Validate() error {
	if c.MatchID == uuid.Nil {
		return fmt.Errorf("invalid MatchID - '%s'", c.MatchID)
	}

	if c.UserID == uuid.Nil {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type CancelMatchResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func HandleCancelMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.WriteBadRequest(w, r, fmt.Errorf("invalid match id"))
		return
	}

	command := CancelMatchCommand{
		MatchID: matchID,
		UserID:  core.Session(ctx).UserID,
	}

	response, err := mediator.Send[CancelMatchCommand, CancelMatchResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type CancelMatchCommandHandler struct {
	db *sql.DB
}

func NewCancelMatchCommandHandler(db *sql.DB) *CancelMatchCommandHandler {
	return &CancelMatchCommandHandler{db: db}
}

func (h *CancelMatchCommandHandler) Handle(
	ctx context.Context,
	request CancelMatchCommand,
) (CancelMatchResponse, error) {
	now := time.Now().UTC()

	var match domain.Match

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		loaded, err := lockMatch(ctx, tx, request.MatchID)
		if err != nil {
			return err
		}
		match = loaded

		match.Expire(now)

		if err := match.Cancel(request.UserID); err != nil {
			return err
		}

		return updateMatch(ctx, tx, match)
	}

	if err := core.Tx(ctx, h.db, txFn); err != nil {
		return CancelMatchResponse{}, matchCommandError(err)
	}

	return CancelMatchResponse{ID: match.ID, Status: string(match.Status)}, nil
}
