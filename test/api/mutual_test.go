package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	matchingcommands "github.com/chupacabra07-bot/night-campus/internal/modules/matching/commands"
	mutualcommands "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/commands"
	mutualdomain "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/domain"
	mutualqueries "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/queries"

	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type matchedPair struct {
	userA   uuid.UUID
	tokenA  string
	userB   uuid.UUID
	tokenB  string
	matchID uuid.UUID
}

// newMatchedPair walks two fresh participants through reciprocal requests
// and returns the resulting pending match.
func newMatchedPair(t *testing.T) matchedPair {
	userA, tokenA := enroll(t)
	userB, tokenB := enroll(t)

	poolA := currentPool(t, tokenA)
	first := submitRequest(t, tokenA, poolA.PoolID, userB)
	require.Equal(t, matchingcommands.StatusRecorded, first.Status)

	poolB := currentPool(t, tokenB)
	second := submitRequest(t, tokenB, poolB.PoolID, userA)
	require.Equal(t, matchingcommands.StatusMutualMatch, second.Status)
	require.NotNil(t, second.MatchID)

	return matchedPair{
		userA:   userA,
		tokenA:  tokenA,
		userB:   userB,
		tokenB:  tokenB,
		matchID: *second.MatchID,
	}
}

func agree(t *testing.T, token string, matchID uuid.UUID) mutualcommands.RecordAgreementResponse {
	response, err := sendRequest[struct{}, mutualcommands.RecordAgreementResponse](
		fixture.client,
		fmt.Sprintf("%s/mutual/%s/agree/", fixture.baseURL, matchID),
		http.MethodPost,
		token,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusOK, resp.StatusCode) },
	)
	require.NoError(t, err)

	return response
}

func Test_Reciprocal_Requests_Create_Mutual_Match(t *testing.T) {
	// Arrange & Act
	pair := newMatchedPair(t)

	// Assert
	matches, err := sendRequest[struct{}, []mutualqueries.MatchResponse](
		fixture.client,
		fmt.Sprintf("%s%s", fixture.baseURL, "/mutual/"),
		http.MethodGet,
		pair.tokenA,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusOK, resp.StatusCode) },
	)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	require.Equal(t, pair.matchID, match.ID)
	require.Equal(t, pair.userB, match.OtherUserID)
	require.Equal(t, string(mutualdomain.StatusPending), match.Status)
	require.NotEmpty(t, match.MeetingLocation)
	require.True(t, match.MeetingTime.After(match.CreatedAt))
	require.False(t, match.YouAgreed)
	require.False(t, match.PartnerAgreed)
	require.Nil(t, match.ChatUnlockedAt)
}

func Test_Pending_Match_Puts_Both_Users_On_Cooldown(t *testing.T) {
	// Arrange
	pair := newMatchedPair(t)

	// Act
	var body map[string]any
	body, err := sendRequest[struct{}, map[string]any](
		fixture.client,
		fmt.Sprintf("%s%s", fixture.baseURL, "/matching/current_pool/"),
		http.MethodGet,
		pair.tokenA,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusOK, resp.StatusCode) },
	)
	require.NoError(t, err)

	// Assert
	require.Equal(t, "cooldown", body["status"])
	require.NotEmpty(t, body["message"])
}

func Test_Agreement_Handshake_Activates_Match(t *testing.T) {
	// Arrange
	pair := newMatchedPair(t)

	// Act
	first := agree(t, pair.tokenA, pair.matchID)

	// Assert
	require.Equal(t, string(mutualdomain.StatusPending), first.Status)
	require.True(t, first.YouAgreed)
	require.False(t, first.PartnerAgreed)
	require.Nil(t, first.ChatUnlockedAt)

	// A second agreement from the same side changes nothing.
	repeated := agree(t, pair.tokenA, pair.matchID)
	require.Equal(t, string(mutualdomain.StatusPending), repeated.Status)

	second := agree(t, pair.tokenB, pair.matchID)
	require.Equal(t, string(mutualdomain.StatusActive), second.Status)
	require.True(t, second.YouAgreed)
	require.True(t, second.PartnerAgreed)
	require.NotNil(t, second.ChatUnlockedAt)
	require.NotNil(t, second.ExpiresAt)
	require.True(t, second.ExpiresAt.After(*second.ChatUnlockedAt))
}

func Test_Agreement_By_Stranger_Is_Forbidden(t *testing.T) {
	// Arrange
	pair := newMatchedPair(t)
	_, strangerToken := enroll(t)

	// Act & Assert
	_, err := sendRequest[struct{}, any](
		fixture.client,
		fmt.Sprintf("%s/mutual/%s/agree/", fixture.baseURL, pair.matchID),
		http.MethodPost,
		strangerToken,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusForbidden, resp.StatusCode) },
	)
	require.NoError(t, err)
}

func Test_Cancel_Pending_Match_Lifts_Cooldown(t *testing.T) {
	// Arrange
	pair := newMatchedPair(t)

	// Act
	cancelled, err := sendRequest[struct{}, mutualcommands.CancelMatchResponse](
		fixture.client,
		fmt.Sprintf("%s/mutual/%s/cancel/", fixture.baseURL, pair.matchID),
		http.MethodPost,
		pair.tokenA,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusOK, resp.StatusCode) },
	)
	require.NoError(t, err)

	// Assert
	require.Equal(t, string(mutualdomain.StatusCancelled), cancelled.Status)

	pool := currentPool(t, pair.tokenA)
	require.NotEqual(t, uuid.Nil, pool.PoolID)
}

func Test_Cancel_Active_Match_Is_Rejected(t *testing.T) {
	// Arrange
	pair := newMatchedPair(t)
	agree(t, pair.tokenA, pair.matchID)
	agree(t, pair.tokenB, pair.matchID)

	// Act & Assert
	_, err := sendRequest[struct{}, any](
		fixture.client,
		fmt.Sprintf("%s/mutual/%s/cancel/", fixture.baseURL, pair.matchID),
		http.MethodPost,
		pair.tokenA,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusBadRequest, resp.StatusCode) },
	)
	require.NoError(t, err)
}

func Test_GetMatch_Returns_404_For_Unknown_Match(t *testing.T) {
	// Arrange
	_, token := enroll(t)

	// Act & Assert
	_, err := sendRequest[struct{}, any](
		fixture.client,
		fmt.Sprintf("%s/mutual/%s/", fixture.baseURL, uuid.New()),
		http.MethodGet,
		token,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusNotFound, resp.StatusCode) },
	)
	require.NoError(t, err)
}

func Test_Concurrent_Reciprocal_Requests_Create_Exactly_One_Match(t *testing.T) {
	// Arrange
	userA, tokenA := enroll(t)
	userB, tokenB := enroll(t)

	poolA := currentPool(t, tokenA)
	poolB := currentPool(t, tokenB)

	// Act
	var wg sync.WaitGroup
	responses := make([]matchingcommands.SubmitRequestResponse, 2)
	errs := make([]error, 2)

	wg.Add(2)

	go func() {
		defer wg.Done()
		responses[0], errs[0] = sendRequest[matchingcommands.SubmitRequestCommand, matchingcommands.SubmitRequestResponse](
			fixture.client,
			fmt.Sprintf("%s%s", fixture.baseURL, "/matching/request/"),
			http.MethodPost,
			tokenA,
			matchingcommands.SubmitRequestCommand{TargetUserID: userB, PoolID: poolA.PoolID},
		)
	}()

	go func() {
		defer wg.Done()
		responses[1], errs[1] = sendRequest[matchingcommands.SubmitRequestCommand, matchingcommands.SubmitRequestResponse](
			fixture.client,
			fmt.Sprintf("%s%s", fixture.baseURL, "/matching/request/"),
			http.MethodPost,
			tokenB,
			matchingcommands.SubmitRequestCommand{TargetUserID: userA, PoolID: poolB.PoolID},
		)
	}()

	wg.Wait()

	// Assert
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	mutualCount := 0
	for _, response := range responses {
		if response.Status == matchingcommands.StatusMutualMatch {
			mutualCount++
		}
	}
	require.Equal(t, 1, mutualCount)

	count, err := tql.QueryFirst[int64](
		context.Background(),
		fixture.db,
		`SELECT
			count(*)
		FROM
			mutual_match
		WHERE (user_lo = $1 AND user_hi = $2)
		   OR (user_lo = $2 AND user_hi = $1);`,
		userA,
		userB,
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
