package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	mutualdomain "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

const maxMessageLength = 4000

type SendMessageCommand struct {
	MatchID  uuid.UUID `json:"-"`
	SenderID uuid.UUID `json:"-"`
	Text     string    `json:"text"`
}

func (c SendMessageCommand) Validate() error {
	if c.MatchID == uuid.Nil {
		return fmt.Errorf("invalid MatchID - '%s'", c.MatchID)
	}

	if c.SenderID == uuid.Nil {
		return fmt.Errorf("invalid SenderID - '%s'", c.SenderID)
	}

	if c.Text == "" {
		return fmt.Errorf("message text is required")
	}

	if len(c.Text) > maxMessageLength {
		return fmt.Errorf("message text exceeds %d characters", maxMessageLength)
	}

	return nil
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	IsMe      bool      `json:"is_me"`
	CreatedAt time.Time `json:"created_at"`
}

func HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.WriteBadRequest(w, r, fmt.Errorf("invalid match id"))
		return
	}

	command, err := core.RequestBody[SendMessageCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err)
		return
	}
	command.MatchID = matchID
	command.SenderID = core.Session(ctx).UserID

	response, err := mediator.Send[SendMessageCommand, MessageResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteCreated(w, r, r.URL.Path, response)
}

type SendMessageCommandHandler struct {
	db *sql.DB
}

func NewSendMessageCommandHandler(db *sql.DB) *SendMessageCommandHandler {
	return &SendMessageCommandHandler{db: db}
}

func (h *SendMessageCommandHandler) Handle(
	ctx context.Context,
	request SendMessageCommand,
) (MessageResponse, error) {
	now := time.Now().UTC()

	var response MessageResponse

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		// The row lock serializes appends per match, so serial IDs commit
		// in append order and validation races with expiry are impossible.
		match, err := lockMatch(ctx, tx, request.MatchID)
		if err != nil {
			return err
		}

		if !match.Participant(request.SenderID) {
			return mutualdomain.NotAPartyError{MatchID: match.ID, UserID: request.SenderID}
		}

		// The timestamp decides, not the stored status.
		if match.Expire(now) {
			if err := updateMatchStatus(ctx, tx, match); err != nil {
				return err
			}

			return mutualdomain.ExpiredError{MatchID: match.ID}
		}

		switch match.Status {
		case mutualdomain.StatusActive:
			// chat is open
		case mutualdomain.StatusExpired:
			return mutualdomain.ExpiredError{MatchID: match.ID}
		default:
			return mutualdomain.NotActiveError{MatchID: match.ID}
		}

		const stmt = `
			INSERT INTO
				match_message (match_id, sender_id, body, created_at)
			VALUES
				($1, $2, $3, $4)
			RETURNING
				id;`
		id, err := tql.QueryFirst[int64](ctx, tx, stmt, match.ID, request.SenderID, request.Text, now)
		if err != nil {
			return err
		}

		response = MessageResponse{ID: id, Text: request.Text, IsMe: true, CreatedAt: now}
		return nil
	}

	if err := core.Tx(ctx, h.db, txFn); err != nil {
		return MessageResponse{}, chatCommandError(err)
	}

	return response, nil
}

func lockMatch(ctx context.Context, tx *sql.Tx, matchID uuid.UUID) (mutualdomain.Match, error) {
	const query = `
		SELECT
			id, user_lo, user_hi, status, meeting_location, meeting_time,
			lo_agreed, hi_agreed, chat_unlocked_at, expires_at, created_at
		FROM
			mutual_match
		WHERE
			id = $1
		FOR UPDATE;`
	match, err := tql.QueryFirst[mutualdomain.Match](ctx, tx, query, matchID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return mutualdomain.Match{}, mutualdomain.NotFoundError{MatchID: matchID}
	case err != nil:
		return mutualdomain.Match{}, err
	}

	return match, nil
}

func updateMatchStatus(ctx context.Context, tx *sql.Tx, match mutualdomain.Match) error {
	const stmt = `
		UPDATE
			mutual_match
		SET
			status = $1
		WHERE
			id = $2;`
	_, err := tx.ExecContext(ctx, stmt, string(match.Status), match.ID)
	return err
}

func chatCommandError(err error) error {
	switch err.(type) {
	case mutualdomain.NotFoundError:
		return core.NewCommandError(http.StatusNotFound, err)
	case mutualdomain.NotAPartyError:
		return core.NewCommandError(http.StatusForbidden, err)
	case mutualdomain.NotActiveError:
		return core.NewCommandError(http.StatusForbidden, err)
	case mutualdomain.ExpiredError:
		return core.NewCommandError(http.StatusGone, err)
	default:
		return core.NewCommandError(http.StatusInternalServerError, err)
	}
}
