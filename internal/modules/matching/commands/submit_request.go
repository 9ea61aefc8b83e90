package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/matching/domain"
	mutualdomain "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"
	"github.com/chupacabra07-bot/night-campus/internal/modules/notifications"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type SubmitRequestCommand struct {
	RequesterID  uuid.UUID `json:"-"`
	TargetUserID uuid.UUID `json:"target_user_id"`
	PoolID       uuid.UUID `json:"pool_id"`
}

func (c SubmitRequestCommand) Validate() error {
	if c.RequesterID == uuid.Nil {
		return fmt.Errorf("invalid RequesterID - '%s'", c.RequesterID)
	}

	if c.TargetUserID == uuid.Nil {
		return fmt.Errorf("invalid TargetUserID - '%s'", c.TargetUserID)
	}

	if c.PoolID == uuid.Nil {
		return fmt.Errorf("invalid PoolID - '%s'", c.PoolID)
	}

	return nil
}

const (
	StatusRecorded    = "recorded"
	StatusMutualMatch = "mutual_match"
)

type SubmitRequestResponse struct {
	Status            string     `json:"status"`
	MatchID           *uuid.UUID `json:"match_id,omitempty"`
	RequestsSentCount int        `json:"requests_sent_count"`
}

func HandleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command, err := core.RequestBody[SubmitRequestCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err)
		return
	}
	command.RequesterID = core.Session(ctx).UserID

	response, err := mediator.Send[SubmitRequestCommand, SubmitRequestResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type SubmitRequestCommandHandler struct {
	db     *sql.DB
	quota  int
	fanout notifications.Fanout
}

func NewSubmitRequestCommandHandler(db *sql.DB, quota int, fanout notifications.Fanout) *SubmitRequestCommandHandler {
	return &SubmitRequestCommandHandler{db: db, quota: quota, fanout: fanout}
}

func (h *SubmitRequestCommandHandler) Handle(
	ctx context.Context,
	request SubmitRequestCommand,
) (SubmitRequestResponse, error) {
	if request.TargetUserID == request.RequesterID {
		return SubmitRequestResponse{}, core.NewCommandError(
			http.StatusBadRequest,
			domain.InvalidTargetError{TargetID: request.TargetUserID},
		)
	}

	var (
		response SubmitRequestResponse
		match    *mutualdomain.Match
	)

	// Serialization conflicts are an implementation detail; retry here so
	// the caller only ever sees a recorded or mutual_match outcome.
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		response, match, err = h.submit(ctx, request)
		if err == nil || !retryableConflict(err) {
			break
		}

		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}

	if err != nil {
		return SubmitRequestResponse{}, commandError(err)
	}

	if match != nil {
		if err := h.fanout.Publish(ctx, notifications.MutualMatch(match.ID, match.UserLo, match.UserHi)); err != nil {
			core.LogError(ctx, "failed to publish mutual match event")
		}
	}

	return response, nil
}

func (h *SubmitRequestCommandHandler) submit(
	ctx context.Context,
	request SubmitRequestCommand,
) (SubmitRequestResponse, *mutualdomain.Match, error) {
	now := time.Now().UTC()

	var (
		response SubmitRequestResponse
		match    *mutualdomain.Match
	)

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		const poolQuery = `
			SELECT
				id, owner_id, created_at, expires_at
			FROM
				match_pool
			WHERE
				id = $1;`
		pool, err := tql.QueryFirst[domain.Pool](ctx, tx, poolQuery, request.PoolID)
		switch {
		case err != nil && errors.Is(err, sql.ErrNoRows):
			return domain.PoolExpiredError{PoolID: request.PoolID}
		case err != nil:
			return err
		}

		if pool.Expired(now) {
			return domain.PoolExpiredError{PoolID: request.PoolID}
		}

		if pool.OwnerID != request.RequesterID {
			return domain.NotPoolOwnerError{PoolID: pool.ID, UserID: request.RequesterID}
		}

		const memberQuery = `
			SELECT
				count(*)
			FROM
				match_pool_member
			WHERE
				pool_id = $1 AND member_id = $2;`
		isMember, err := tql.QueryFirst[int](ctx, tx, memberQuery, pool.ID, request.TargetUserID)
		if err != nil {
			return err
		}
		if isMember == 0 {
			return domain.InvalidTargetError{TargetID: request.TargetUserID}
		}

		// The quota and duplicate counts below race under read committed:
		// two submissions to different targets would each read the same
		// count. Serialize them per requester and pool.
		const requesterLock = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0));`
		requesterKey := "requests:" + pool.ID.String() + ":" + request.RequesterID.String()
		if _, err := tx.ExecContext(ctx, requesterLock, requesterKey); err != nil {
			return err
		}

		const outstandingQuery = `
			SELECT
				count(*)
			FROM
				match_request
			WHERE
				pool_id = $1 AND requester_id = $2;`
		outstanding, err := tql.QueryFirst[int](ctx, tx, outstandingQuery, pool.ID, request.RequesterID)
		if err != nil {
			return err
		}

		const duplicateQuery = `
			SELECT
				count(*)
			FROM
				match_request
			WHERE
				pool_id = $1 AND requester_id = $2 AND target_id = $3;`
		duplicate, err := tql.QueryFirst[int](ctx, tx, duplicateQuery, pool.ID, request.RequesterID, request.TargetUserID)
		if err != nil {
			return err
		}

		// Resubmitting an already-recorded request is an idempotent success.
		if duplicate > 0 {
			response = SubmitRequestResponse{Status: StatusRecorded, RequestsSentCount: outstanding}
			return nil
		}

		if outstanding >= h.quota {
			return domain.QuotaExceededError{Limit: h.quota}
		}

		// Everything from here must be serialized per unordered pair:
		// without this lock two concurrent opposite requests can each miss
		// the other's uncommitted row and no match gets created.
		lo, hi := domain.CanonicalPair(request.RequesterID, request.TargetUserID)
		const pairLock = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0));`
		if _, err := tx.ExecContext(ctx, pairLock, lo.String()+":"+hi.String()); err != nil {
			return err
		}

		matchRequest := domain.NewMatchRequest(pool.ID, request.RequesterID, request.TargetUserID, now)
		const insertRequest = `
			INSERT INTO
				match_request (id, pool_id, requester_id, target_id, created_at)
			VALUES
				(:id, :pool_id, :requester_id, :target_id, :created_at)
			ON CONFLICT (pool_id, requester_id, target_id) DO NOTHING;`
		if _, err := tql.Exec(ctx, tx, insertRequest, matchRequest); err != nil {
			return err
		}

		const reciprocalQuery = `
			SELECT
				count(*)
			FROM
				match_request r
				JOIN match_pool p ON p.id = r.pool_id
			WHERE
				r.requester_id = $1 AND r.target_id = $2 AND p.expires_at > $3;`
		reciprocal, err := tql.QueryFirst[int](ctx, tx, reciprocalQuery, request.TargetUserID, request.RequesterID, now)
		if err != nil {
			return err
		}

		if reciprocal == 0 {
			response = SubmitRequestResponse{Status: StatusRecorded, RequestsSentCount: outstanding + 1}
			return nil
		}

		created := mutualdomain.NewMatch(request.RequesterID, request.TargetUserID, now)
		const insertMatch = `
			INSERT INTO
				mutual_match (id, user_lo, user_hi, status, meeting_location, meeting_time, lo_agreed, hi_agreed, created_at)
			VALUES
				(:id, :user_lo, :user_hi, :status, :meeting_location, :meeting_time, :lo_agreed, :hi_agreed, :created_at)
			ON CONFLICT (user_lo, user_hi) WHERE status IN ('pending', 'active') DO NOTHING;`
		result, err := tql.Exec(ctx, tx, insertMatch, created)
		if err != nil {
			return err
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return err
		}

		// Zero rows means the opposite call won the pair index; its caller
		// received the mutual_match result, ours already holds a recorded
		// request.
		if inserted == 0 {
			response = SubmitRequestResponse{Status: StatusRecorded, RequestsSentCount: outstanding + 1}
			return nil
		}

		// Both pools are consumed by the match.
		const consumePools = `
			UPDATE
				match_pool
			SET
				expires_at = $1
			WHERE
				owner_id IN ($2, $3) AND expires_at > $1;`
		if _, err := tx.ExecContext(ctx, consumePools, now, created.UserLo, created.UserHi); err != nil {
			return err
		}

		match = &created
		matchID := created.ID
		response = SubmitRequestResponse{
			Status:            StatusMutualMatch,
			MatchID:           &matchID,
			RequestsSentCount: outstanding + 1,
		}
		return nil
	}

	if err := core.Tx(ctx, h.db, txFn); err != nil {
		return SubmitRequestResponse{}, nil, err
	}

	return response, match, nil
}

func retryableConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	// serialization_failure, deadlock_detected
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func commandError(err error) error {
	switch err.(type) {
	case domain.PoolExpiredError, domain.InvalidTargetError, domain.QuotaExceededError:
		return core.NewCommandError(http.StatusBadRequest, err)
	case domain.NotPoolOwnerError:
		return core.NewCommandError(http.StatusForbidden, err)
	default:
		return core.NewCommandError(http.StatusInternalServerError, err)
	}
}
