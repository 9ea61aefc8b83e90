package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type GetMatchQuery struct {
	MatchID uuid.UUID
	UserID  uuid.UUID
}

func (q GetMatchQuery) Validate() error {
	if q.MatchID == uuid.Nil {
		return fmt.Errorf("invalid MatchID - '%s'", q.MatchID)
	}

	if q.UserID == uuid.Nil {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

func HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.WriteBadRequest(w, r, fmt.Errorf("invalid match id"))
		return
	}

	response, err := mediator.Send[GetMatchQuery, MatchResponse](
		ctx,
		GetMatchQuery{MatchID: matchID, UserID: core.Session(ctx).UserID},
	)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GetMatchQueryHandler struct {
	db *sql.DB
}

func NewGetMatchQueryHandler(db *sql.DB) *GetMatchQueryHandler {
	return &GetMatchQueryHandler{db: db}
}

func (h *GetMatchQueryHandler) Handle(
	ctx context.Context,
	request GetMatchQuery,
) (MatchResponse, error) {
	now := time.Now().UTC()

	const query = `
		SELECT
			id, user_lo, user_hi, status, meeting_location, meeting_time,
			lo_agreed, hi_agreed, chat_unlocked_at, expires_at, created_at
		FROM
			mutual_match
		WHERE
			id = $1;`
	match, err := tql.QueryFirst[domain.Match](ctx, h.db, query, request.MatchID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return MatchResponse{}, core.NewCommandError(http.StatusNotFound, domain.NotFoundError{MatchID: request.MatchID})
	case err != nil:
		return MatchResponse{}, core.NewCommandError(http.StatusInternalServerError, err)
	}

	if !match.Participant(request.UserID) {
		return MatchResponse{}, core.NewCommandError(
			http.StatusForbidden,
			domain.NotAPartyError{MatchID: match.ID, UserID: request.UserID},
		)
	}

	return NewMatchResponse(match, request.UserID, now), nil
}
