package queries

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
)

type ListMatchesQuery struct {
	UserID uuid.UUID
}

func (q ListMatchesQuery) Validate() error {
	if q.UserID == uuid.Nil {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

type MatchResponse struct {
	ID              uuid.UUID  `json:"id"`
	OtherUserID     uuid.UUID  `json:"other_user_id"`
	Status          string     `json:"status"`
	MeetingLocation string     `json:"meeting_location"`
	MeetingTime     time.Time  `json:"meeting_time"`
	YouAgreed       bool       `json:"you_agreed"`
	PartnerAgreed   bool       `json:"partner_agreed"`
	ChatUnlockedAt  *time.Time `json:"chat_unlocked_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewMatchResponse(match domain.Match, viewerID uuid.UUID, now time.Time) MatchResponse {
	other := match.Other(viewerID)

	return MatchResponse{
		ID:              match.ID,
		OtherUserID:     other,
		Status:          string(match.EffectiveStatus(now)),
		MeetingLocation: match.MeetingLocation,
		MeetingTime:     match.MeetingTime,
		YouAgreed:       match.Agreed(viewerID),
		PartnerAgreed:   match.Agreed(other),
		ChatUnlockedAt:  match.ChatUnlockedAt,
		ExpiresAt:       match.ExpiresAt,
		CreatedAt:       match.CreatedAt,
	}
}

func HandleListMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response, err := mediator.Send[ListMatchesQuery, []MatchResponse](
		ctx,
		ListMatchesQuery{UserID: core.Session(ctx).UserID},
	)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ListMatchesQueryHandler struct {
	db *sql.DB
}

func NewListMatchesQueryHandler(db *sql.DB) *ListMatchesQueryHandler {
	return &ListMatchesQueryHandler{db: db}
}

func (h *ListMatchesQueryHandler) Handle(
	ctx context.Context,
	request ListMatchesQuery,
) ([]MatchResponse, error) {
	now := time.Now().UTC()

	// Unresolved matches only; an active match past its TTL is already
	// expired no matter what the sweep has gotten to.
	const query = `
		SELECT
			id, user_lo, user_hi, status, meeting_location, meeting_time,
			lo_agreed, hi_agreed, chat_unlocked_at, expires_at, created_at
		FROM
			mutual_match
		WHERE
			(user_lo = $1 OR user_hi = $1)
			AND (status = 'pending' OR (status = 'active' AND expires_at > $2))
		ORDER BY
			created_at DESC;`
	matches, err := tql.Query[domain.Match](ctx, h.db, query, request.UserID, now)
	if err != nil {
		return nil, err
	}

	return core.Map(matches, func(m domain.Match) MatchResponse {
		return NewMatchResponse(m, request.UserID, now)
	}), nil
}
