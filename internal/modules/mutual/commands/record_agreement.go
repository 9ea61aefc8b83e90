package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"
	"github.com/chupacabra07-bot/night-campus/internal/modules/notifications"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type RecordAgreementCommand struct {
	MatchID uuid.UUID
	UserID  uuid.UUID
}

func (c RecordAgreementCommand) Validate() error {
	if c.MatchID == uuid.Nil {
		return fmt.Errorf("invalid MatchID - '%s'", c.MatchID)
	}

	if c.UserID == uuid.Nil {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type RecordAgreementResponse struct {
	ID              uuid.UUID  `json:"id"`
	OtherUserID     uuid.UUID  `json:"other_user_id"`
	Status          string     `json:"status"`
	MeetingLocation string     `json:"meeting_location"`
	MeetingTime     time.Time  `json:"meeting_time"`
	YouAgreed       bool       `json:"you_agreed"`
	PartnerAgreed   bool       `json:"partner_agreed"`
	ChatUnlockedAt  *time.Time `json:"chat_unlocked_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func HandleRecordAgreement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.WriteBadRequest(w, r, fmt.Errorf("invalid match id"))
		return
	}

	command := RecordAgreementCommand{
		MatchID: matchID,
		UserID:  core.Session(ctx).UserID,
	}

	response, err := mediator.Send[RecordAgreementCommand, RecordAgreementResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type RecordAgreementCommandHandler struct {
	db      *sql.DB
	chatTTL time.Duration
	fanout  notifications.Fanout
}

func NewRecordAgreementCommandHandler(db *sql.DB, chatTTL time.Duration, fanout notifications.Fanout) *RecordAgreementCommandHandler {
	return &RecordAgreementCommandHandler{db: db, chatTTL: chatTTL, fanout: fanout}
}

func (h *RecordAgreementCommandHandler) Handle(
	ctx context.Context,
	request RecordAgreementCommand,
) (RecordAgreementResponse, error) {
	now := time.Now().UTC()

	var (
		match      domain.Match
		lazyExpiry bool
		recorded   bool
		activated  bool
	)

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		loaded, err := lockMatch(ctx, tx, request.MatchID)
		if err != nil {
			return err
		}
		match = loaded

		// Lazy expiry: the clock, not the sweep, decides.
		lazyExpiry = match.Expire(now)

		wasPending := match.Status == domain.StatusPending
		hadAgreed := match.Participant(request.UserID) && match.Agreed(request.UserID)

		activated, err = match.RecordAgreement(request.UserID, now, h.chatTTL)
		if err != nil {
			return err
		}
		recorded = wasPending && !hadAgreed

		return updateMatch(ctx, tx, match)
	}

	if err := core.Tx(ctx, h.db, txFn); err != nil {
		return RecordAgreementResponse{}, matchCommandError(err)
	}

	if lazyExpiry {
		h.publish(ctx, notifications.ChatExpired(match.ID, match.UserLo, match.UserHi))
	}

	if recorded {
		h.publish(ctx, notifications.AgreementRecorded(match.ID, match.Other(request.UserID)))
	}

	if activated {
		h.publish(ctx, notifications.ChatActivated(match.ID, match.UserLo, match.UserHi))
	}

	return RecordAgreementResponse{
		ID:              match.ID,
		OtherUserID:     match.Other(request.UserID),
		Status:          string(match.EffectiveStatus(now)),
		MeetingLocation: match.MeetingLocation,
		MeetingTime:     match.MeetingTime,
		YouAgreed:       match.Agreed(request.UserID),
		PartnerAgreed:   match.Agreed(match.Other(request.UserID)),
		ChatUnlockedAt:  match.ChatUnlockedAt,
		ExpiresAt:       match.ExpiresAt,
	}, nil
}

func (h *RecordAgreementCommandHandler) publish(ctx context.Context, event notifications.Event) {
	if err := h.fanout.Publish(ctx, event); err != nil {
		core.LogError(ctx, "failed to publish lifecycle event")
	}
}

func lockMatch(ctx context.Context, tx *sql.Tx, matchID uuid.UUID) (domain.Match, error) {
	const query = `
		SELECT
			id, user_lo, user_hi, status, meeting_location, meeting_time,
			lo_agreed, hi_agreed, chat_unlocked_at, expires_at, created_at
		FROM
			mutual_match
		WHERE
			id = $1
		FOR UPDATE;`
	match, err := tql.QueryFirst[domain.Match](ctx, tx, query, matchID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return domain.Match{}, domain.NotFoundError{MatchID: matchID}
	case err != nil:
		return domain.Match{}, err
	}

	return match, nil
}

func updateMatch(ctx context.Context, tx *sql.Tx, match domain.Match) error {
	const stmt = `
		UPDATE
			mutual_match
		SET
			status = :status,
			lo_agreed = :lo_agreed,
			hi_agreed = :hi_agreed,
			chat_unlocked_at = :chat_unlocked_at,
			expires_at = :expires_at
		WHERE
			id = :id;`
	_, err := tql.Exec(ctx, tx, stmt, match)
	return err
}

func matchCommandError(err error) error {
	switch err.(type) {
	case domain.NotFoundError:
		return core.NewCommandError(http.StatusNotFound, err)
	case domain.NotAPartyError:
		return core.NewCommandError(http.StatusForbidden, err)
	case domain.AlreadyActiveError:
		return core.NewCommandError(http.StatusBadRequest, err)
	case domain.NotActiveError:
		return core.NewCommandError(http.StatusForbidden, err)
	case domain.ExpiredError:
		return core.NewCommandError(http.StatusGone, err)
	default:
		return core.NewCommandError(http.StatusInternalServerError, err)
	}
}
