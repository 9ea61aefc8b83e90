package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	matchingcommands "github.com/chupacabra07-bot/night-campus/internal/modules/matching/commands"
	matchingqueries "github.com/chupacabra07-bot/night-campus/internal/modules/matching/queries"

	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type responseAssertion func(*http.Response)

func sendRequest[TReq any, TResp any](
	c *http.Client,
	url string,
	method string,
	token string,
	req TReq,
	opts ...responseAssertion,
) (TResp, error) {
	var resp TResp

	payload, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return resp, err
	}

	if token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	httpResp, err := c.Do(httpReq)
	if err != nil {
		return resp, err
	}

	for _, opt := range opts {
		opt(httpResp)
	}

	if httpResp.ContentLength > 0 {
		defer func() {
			_ = httpResp.Body.Close()
		}()

		responsePayload, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return resp, err
		}

		if err := json.Unmarshal(responsePayload, &resp); err != nil {
			return resp, err
		}
	}

	return resp, err
}

// enroll seeds a participant row and issues a session token for it.
func enroll(t *testing.T) (uuid.UUID, string) {
	userID := uuid.New()

	_, err := tql.Exec(
		context.Background(),
		fixture.db,
		"INSERT INTO participant (id, campus) VALUES ($1, $2);",
		userID,
		"main",
	)
	require.NoError(t, err)

	session := fixture.server.Sessions().Issue(userID)

	return userID, session.Token
}

func currentPool(t *testing.T, token string) matchingqueries.CurrentPoolResponse {
	pool, err := sendRequest[struct{}, matchingqueries.CurrentPoolResponse](
		fixture.client,
		fmt.Sprintf("%s%s", fixture.baseURL, "/matching/current_pool/"),
		http.MethodGet,
		token,
		struct{}{},
		func(resp *http.Response) { require.Equal(t, http.StatusOK, resp.StatusCode) },
	)
	require.NoError(t, err)

	return pool
}

func submitRequest(
	t *testing.T,
	token string,
	poolID, targetID uuid.UUID,
	opts ...responseAssertion,
) matchingcommands.SubmitRequestResponse {
	if len(opts) == 0 {
		opts = []responseAssertion{
			func(resp *http.Response) { require.Equal(t, http.StatusOK, resp.StatusCode) },
		}
	}

	response, err := sendRequest[matchingcommands.SubmitRequestCommand, matchingcommands.SubmitRequestResponse](
		fixture.client,
		fmt.Sprintf("%s%s", fixture.baseURL, "/matching/request/"),
		http.MethodPost,
		token,
		matchingcommands.SubmitRequestCommand{TargetUserID: targetID, PoolID: poolID},
		opts...,
	)
	require.NoError(t, err)

	return response
}

// poolMemberIDs flattens the pool members for simple membership checks.
func poolMemberIDs(pool matchingqueries.CurrentPoolResponse) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(pool.Members))
	for _, member := range pool.Members {
		ids = append(ids, member.ID)
	}

	return ids
}
