package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qkfdcom/lcqk/internal/domain"
	"github.com/qkfdcom/lcqk/internal/service"
	"github.com/qkfdcom/lcqk/internal/sheets"
	"github.com/qkfdcom/lcqk/internal/store"
)

func sheetFetcher(ranges map[string][][]string, failing ...string) sheets.RangeFetcher {
	return sheets.RangeFetcherFunc(func(_ context.Context, _, a1Range string) ([][]string, error) {
		for _, f := range failing {
			if f == a1Range {
				return nil, errors.New("quota exceeded")
			}
		}
		return ranges[a1Range], nil
	})
}

func TestSync_NotConfigured(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)

	resp := ts.api.Post("/api/v1/sync", authz)
	require.Equal(t, http.StatusPreconditionFailed, resp.Code, resp.Body.String())
	assert.Equal(t, "PRECONDITION_FAILED", decodeEnvelope[any](t, resp).Code)
}

func TestSync_WritesTiersAndRecordsRun(t *testing.T) {
	ts := setupTestServerWith(t, serverOptions{fetcher: sheetFetcher(map[string][][]string{
		"normal_list!A2:B": {{"alice", "friend"}},
		"yellow_list!A2:B": {{"bob", "spam"}, {"", "skipped"}},
		"black_list!A2:B":  {{"eve", "scam"}, {"mallory", "bot"}},
	})})
	authz := ts.login(t)

	resp := ts.api.Post("/api/v1/sync", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decodeEnvelope[service.SyncResult](t, resp)
	assert.NotEmpty(t, env.Data.RunID)
	assert.Equal(t, domain.TierCounts{Normal: 1, Warning: 1, Danger: 2, Total: 4}, env.Data.Counts)
	assert.JSONEq(t, `{"users":[{"user_id":"bob","tag":"spam"}]}`, ts.readFile(t, "yellow_list.json"))

	resp = ts.api.Get("/api/v1/sync/history", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	history := decodeEnvelope[store.PaginatedResult[*domain.SyncRun]](t, resp)
	require.Len(t, history.Data.Items, 1)
	assert.Equal(t, domain.SyncStatusSucceeded, history.Data.Items[0].Status)
	assert.Equal(t, env.Data.RunID, history.Data.Items[0].ID)
}

func TestSync_FetchFailureLeavesFilesAlone(t *testing.T) {
	ts := setupTestServerWith(t, serverOptions{fetcher: sheetFetcher(map[string][][]string{
		"normal_list!A2:B": {{"alice", "friend"}},
		"yellow_list!A2:B": {{"bob", "spam"}},
	}, "black_list!A2:B")})
	authz := ts.login(t)
	ts.writeFile(t, "normal_list.json", `{"users":[{"user_id":"keep","tag":"x"}]}`)

	resp := ts.api.Post("/api/v1/sync", authz)
	require.Equal(t, http.StatusBadGateway, resp.Code, resp.Body.String())

	env := decodeEnvelope[any](t, resp)
	assert.Equal(t, "SYNC_FAILED", env.Code)
	var details map[string][]string
	require.NoError(t, json.Unmarshal(env.Details, &details))
	assert.Equal(t, []string{"black_list!A2:B"}, details["failed_ranges"])

	assert.JSONEq(t, `{"users":[{"user_id":"keep","tag":"x"}]}`, ts.readFile(t, "normal_list.json"))
}

func TestSyncHistory_InvalidCursor(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)

	resp := ts.api.Get("/api/v1/sync/history?cursor=***", authz)
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}
