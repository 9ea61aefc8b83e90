package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	chatdomain "github.com/chupacabra07-bot/night-campus/internal/modules/chat/domain"
	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	mutualdomain "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type ListMessagesQuery struct {
	MatchID     uuid.UUID
	RequesterID uuid.UUID
}

func (q ListMessagesQuery) Validate() error {
	if q.MatchID == uuid.Nil {
		return fmt.Errorf("invalid MatchID - '%s'", q.MatchID)
	}

	if q.RequesterID == uuid.Nil {
		return fmt.Errorf("invalid RequesterID - '%s'", q.RequesterID)
	}

	return nil
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	IsMe      bool      `json:"is_me"`
	CreatedAt time.Time `json:"created_at"`
}

func HandleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.WriteBadRequest(w, r, fmt.Errorf("invalid match id"))
		return
	}

	response, err := mediator.Send[ListMessagesQuery, []MessageResponse](
		ctx,
		ListMessagesQuery{MatchID: matchID, RequesterID: core.Session(ctx).UserID},
	)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ListMessagesQueryHandler struct {
	db *sql.DB
}

func NewListMessagesQueryHandler(db *sql.DB) *ListMessagesQueryHandler {
	return &ListMessagesQueryHandler{db: db}
}

func (h *ListMessagesQueryHandler) Handle(
	ctx context.Context,
	request ListMessagesQuery,
) ([]MessageResponse, error) {
	now := time.Now().UTC()

	const matchQuery = `
		SELECT
			id, user_lo, user_hi, status, meeting_location, meeting_time,
			lo_agreed, hi_agreed, chat_unlocked_at, expires_at, created_at
		FROM
			mutual_match
		WHERE
			id = $1;`
	match, err := tql.QueryFirst[mutualdomain.Match](ctx, h.db, matchQuery, request.MatchID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return nil, core.NewCommandError(http.StatusNotFound, mutualdomain.NotFoundError{MatchID: request.MatchID})
	case err != nil:
		return nil, core.NewCommandError(http.StatusInternalServerError, err)
	}

	if !match.Participant(request.RequesterID) {
		return nil, core.NewCommandError(
			http.StatusForbidden,
			mutualdomain.NotAPartyError{MatchID: match.ID, UserID: request.RequesterID},
		)
	}

	// No post-expiry access to content, stale history included.
	switch match.EffectiveStatus(now) {
	case mutualdomain.StatusActive:
		// readable
	case mutualdomain.StatusExpired:
		return nil, core.NewCommandError(http.StatusGone, mutualdomain.ExpiredError{MatchID: match.ID})
	default:
		return nil, core.NewCommandError(http.StatusForbidden, mutualdomain.NotActiveError{MatchID: match.ID})
	}

	const messagesQuery = `
		SELECT
			id, match_id, sender_id, body, created_at
		FROM
			match_message
		WHERE
			match_id = $1
		ORDER BY
			id;`
	messages, err := tql.Query[chatdomain.Message](ctx, h.db, messagesQuery, match.ID)
	if err != nil {
		return nil, core.NewCommandError(http.StatusInternalServerError, err)
	}

	return core.Map(messages, func(m chatdomain.Message) MessageResponse {
		return MessageResponse{
			ID:        m.ID,
			Text:      m.Body,
			IsMe:      m.SenderID == request.RequesterID,
			CreatedAt: m.CreatedAt,
		}
	}), nil
}
