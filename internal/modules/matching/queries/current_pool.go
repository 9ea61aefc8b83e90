package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/matching/domain"
	"github.com/chupacabra07-bot/night-campus/internal/modules/matching/scoring"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
)

type GetCurrentPoolQuery struct {
	UserID uuid.UUID
}

func (q GetCurrentPoolQuery) Validate() error {
	if q.UserID == uuid.Nil {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

type PoolMemberResponse struct {
	ID                  uuid.UUID       `json:"id"`
	CompatibilityMeters scoring.Summary `json:"compatibility_meters"`
}

type CurrentPoolResponse struct {
	PoolID            uuid.UUID            `json:"pool_id"`
	CreatedAt         time.Time            `json:"created_at"`
	ExpiresAt         time.Time            `json:"expires_at"`
	Members           []PoolMemberResponse `json:"members"`
	RequestedIDs      []uuid.UUID          `json:"requested_ids"`
	RequestsSentCount int                  `json:"requests_sent_count"`
}

type cooldownBody struct {
	Status           string     `json:"status"`
	Message          string     `json:"message"`
	Until            *time.Time `json:"until,omitempty"`
	RemainingSeconds *int64     `json:"remaining_seconds,omitempty"`
}

func HandleGetCurrentPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response, err := mediator.Send[GetCurrentPoolQuery, CurrentPoolResponse](
		ctx,
		GetCurrentPoolQuery{UserID: core.Session(ctx).UserID},
	)

	var cooldown domain.CooldownError
	if err != nil && errors.As(err, &cooldown) {
		// Cooldown is a policy outcome, not a transport failure.
		core.WriteOK(w, r, newCooldownBody(cooldown))
		return
	}

	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

func newCooldownBody(cooldown domain.CooldownError) cooldownBody {
	body := cooldownBody{
		Status:  "cooldown",
		Message: "You're booked for now. New matches unlock once your current match resolves.",
	}

	if cooldown.Until != nil {
		remaining := time.Until(*cooldown.Until)
		if remaining < 0 {
			remaining = 0
		}

		seconds := int64(remaining.Seconds())
		hours := int(remaining.Hours())

		body.Until = cooldown.Until
		body.RemainingSeconds = &seconds
		body.Message = fmt.Sprintf("You're booked for now. New matches unlock in %dh.", hours)
	}

	return body
}

type GetCurrentPoolQueryHandler struct {
	db       *sql.DB
	provider scoring.Provider
	poolSize int
	validity time.Duration
}

func NewGetCurrentPoolQueryHandler(
	db *sql.DB,
	provider scoring.Provider,
	poolSize int,
	validity time.Duration,
) *GetCurrentPoolQueryHandler {
	return &GetCurrentPoolQueryHandler{
		db:       db,
		provider: provider,
		poolSize: poolSize,
		validity: validity,
	}
}

func (h *GetCurrentPoolQueryHandler) Handle(
	ctx context.Context,
	request GetCurrentPoolQuery,
) (CurrentPoolResponse, error) {
	now := time.Now().UTC()

	var (
		pool         domain.Pool
		memberIDs    []uuid.UUID
		requestedIDs []uuid.UUID
	)

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		// One user, one live pool: serialize concurrent fetches per owner.
		const ownerLock = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0));`
		if _, err := tx.ExecContext(ctx, ownerLock, "pool:"+request.UserID.String()); err != nil {
			return err
		}

		cooldown, err := h.cooldown(ctx, tx, request.UserID, now)
		if err != nil {
			return err
		}
		if cooldown != nil {
			return *cooldown
		}

		pool, err = h.currentOrNewPool(ctx, tx, request.UserID, now)
		if err != nil {
			return err
		}

		const membersQuery = `
			SELECT
				pool_id, member_id, position
			FROM
				match_pool_member
			WHERE
				pool_id = $1
			ORDER BY
				position;`
		members, err := tql.Query[domain.PoolMember](ctx, tx, membersQuery, pool.ID)
		if err != nil {
			return err
		}
		memberIDs = core.Map(members, func(m domain.PoolMember) uuid.UUID { return m.MemberID })

		const requestedQuery = `
			SELECT
				target_id
			FROM
				match_request
			WHERE
				pool_id = $1 AND requester_id = $2
			ORDER BY
				created_at;`
		requestedIDs, err = tql.Query[uuid.UUID](ctx, tx, requestedQuery, pool.ID, request.UserID)
		return err
	}

	if err := core.Tx(ctx, h.db, txFn); err != nil {
		var cooldown domain.CooldownError
		if errors.As(err, &cooldown) {
			return CurrentPoolResponse{}, err
		}

		return CurrentPoolResponse{}, core.NewCommandError(http.StatusInternalServerError, err)
	}

	members := make([]PoolMemberResponse, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		summary, err := h.provider.Summary(ctx, request.UserID, memberID)
		if err != nil {
			// The pool is still usable without meters.
			core.LogError(ctx, "failed to compute compatibility summary")
			summary = scoring.Summary{}
		}

		members = append(members, PoolMemberResponse{ID: memberID, CompatibilityMeters: summary})
	}

	return CurrentPoolResponse{
		PoolID:            pool.ID,
		CreatedAt:         pool.CreatedAt,
		ExpiresAt:         pool.ExpiresAt,
		Members:           members,
		RequestedIDs:      requestedIDs,
		RequestsSentCount: len(requestedIDs),
	}, nil
}

// cooldown reports whether the user currently holds an unresolved match.
// Derived from match rows and timestamps on every call; the expiry sweep is
// irrelevant to it.
func (h *GetCurrentPoolQueryHandler) cooldown(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	now time.Time,
) (*domain.CooldownError, error) {
	const unresolvedQuery = `
		SELECT
			count(*)
		FROM
			mutual_match
		WHERE
			(user_lo = $1 OR user_hi = $1)
			AND (status = 'pending' OR (status = 'active' AND expires_at > $2));`
	unresolved, err := tql.QueryFirst[int](ctx, tx, unresolvedQuery, userID, now)
	if err != nil {
		return nil, err
	}

	if unresolved == 0 {
		return nil, nil
	}

	const untilQuery = `
		SELECT
			min(expires_at)
		FROM
			mutual_match
		WHERE
			(user_lo = $1 OR user_hi = $1)
			AND status = 'active' AND expires_at > $2;`
	until, err := tql.QueryFirst[*time.Time](ctx, tx, untilQuery, userID, now)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return &domain.CooldownError{Until: until}, nil
}

func (h *GetCurrentPoolQueryHandler) currentOrNewPool(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	now time.Time,
) (domain.Pool, error) {
	const poolQuery = `
		SELECT
			id, owner_id, created_at, expires_at
		FROM
			match_pool
		WHERE
			owner_id = $1 AND expires_at > $2
		ORDER BY
			created_at DESC
		LIMIT 1;`
	pool, err := tql.QueryFirst[domain.Pool](ctx, tx, poolQuery, userID, now)
	switch {
	case err == nil:
		return pool, nil
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Pool{}, err
	}

	// No live pool: sample eligible candidates. Users sharing an unresolved
	// match with the owner never reappear as candidates.
	const sampleQuery = `
		SELECT
			u.id
		FROM
			participant u
		WHERE
			u.id <> $1
			AND NOT EXISTS (
				SELECT
					1
				FROM
					mutual_match m
				WHERE
					(m.status = 'pending' OR (m.status = 'active' AND m.expires_at > $2))
					AND ((m.user_lo = $1 AND m.user_hi = u.id) OR (m.user_hi = $1 AND m.user_lo = u.id))
			)
		ORDER BY
			random()
		LIMIT $3;`
	sample, err := tql.Query[uuid.UUID](ctx, tx, sampleQuery, userID, now, h.poolSize)
	if err != nil {
		return domain.Pool{}, err
	}

	candidates := domain.SelectCandidates(sample, userID, nil, h.poolSize)

	pool = domain.NewPool(userID, now, h.validity)
	const insertPool = `
		INSERT INTO
			match_pool (id, owner_id, created_at, expires_at)
		VALUES
			(:id, :owner_id, :created_at, :expires_at);`
	if _, err := tql.Exec(ctx, tx, insertPool, pool); err != nil {
		return domain.Pool{}, err
	}

	const insertMember = `
		INSERT INTO
			match_pool_member (pool_id, member_id, position)
		VALUES
			(:pool_id, :member_id, :position);`
	for position, candidate := range candidates {
		member := domain.PoolMember{PoolID: pool.ID, MemberID: candidate, Position: position}
		if _, err := tql.Exec(ctx, tx, insertMember, member); err != nil {
			return domain.Pool{}, err
		}
	}

	return pool, nil
}
