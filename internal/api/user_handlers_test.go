package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qkfdcom/lcqk/internal/domain"
	"github.com/qkfdcom/lcqk/internal/service"
)

func TestListUsers_EmptyIsPublic(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/users")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decodeEnvelope[service.ListPage](t, resp)
	assert.True(t, env.Success)
	assert.Empty(t, env.Data.Items)
	assert.Equal(t, 0, env.Data.Total)
	assert.Equal(t, 1, env.Data.Page)
	assert.Equal(t, 20, env.Data.PageSize)
}

func TestListUsers_MergesTiersWithIdentifiers(t *testing.T) {
	ts := setupTestServer(t)
	ts.writeFile(t, "normal_list.json", `{"users":[{"user_id":"alice","tag":"friend"}]}`)
	ts.writeFile(t, "black_list.json", `{"users":[{"user_id":"eve","tag":"scam"}]}`)
	ts.writeFile(t, "twitter_ids.json", `{"users":{"eve":"42"}}`)

	resp := ts.api.Get("/api/v1/users")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decodeEnvelope[service.ListPage](t, resp)
	require.Len(t, env.Data.Items, 2)
	assert.Equal(t, "alice", env.Data.Items[0].Username)
	assert.Equal(t, domain.TierNormal, env.Data.Items[0].Tier)
	assert.Equal(t, "eve", env.Data.Items[1].Username)
	assert.Equal(t, domain.TierDanger, env.Data.Items[1].Tier)
	assert.Equal(t, "42", env.Data.Items[1].ExternalID)
}

func TestListUsers_TierFilterAndSearch(t *testing.T) {
	ts := setupTestServer(t)
	ts.writeFile(t, "yellow_list.json", `{"users":[{"user_id":"Bob","tag":"spam"},{"user_id":"carol","tag":"Bot ring"}]}`)
	ts.writeFile(t, "black_list.json", `{"users":[{"user_id":"bobby","tag":"scam"}]}`)

	resp := ts.api.Get("/api/v1/users?tier=yellow&q=BO")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decodeEnvelope[service.ListPage](t, resp)
	require.Len(t, env.Data.Items, 2)
	for _, item := range env.Data.Items {
		assert.Equal(t, domain.TierWarning, item.Tier)
	}
}

func TestListUsers_InvalidFileReportsViolations(t *testing.T) {
	ts := setupTestServer(t)
	ts.writeFile(t, "black_list.json", `{"users":[{"user_id":"坏人","tag":"x"}]}`)

	resp := ts.api.Get("/api/v1/users")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	env := decodeEnvelope[any](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION", env.Code)

	var details map[string][]domain.ListEntry
	require.NoError(t, json.Unmarshal(env.Details, &details))
	assert.Equal(t, []domain.ListEntry{{UserID: "坏人", Tag: "x"}}, details["black"])
	assert.Empty(t, details["normal"])
	assert.Empty(t, details["yellow"])
}

func TestListUsers_UnknownTier(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/users?tier=purple")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddUser_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/users", map[string]any{"username": "alice", "tier": "normal"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	env := decodeEnvelope[any](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestAddUser_InvalidToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/users", "Authorization: Bearer v4.local.garbage",
		map[string]any{"username": "alice", "tier": "normal"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAddUser_CreateThenUpdate(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)

	resp := ts.api.Post("/api/v1/users", authz, map[string]any{"username": "alice", "tier": "warning", "tag": "spam"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decodeEnvelope[UserResponse](t, resp)
	assert.True(t, env.Data.Created)

	resp = ts.api.Post("/api/v1/users", authz, map[string]any{"username": "alice", "tier": "warning", "tag": "bot"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env = decodeEnvelope[UserResponse](t, resp)
	assert.False(t, env.Data.Created)

	assert.JSONEq(t, `{"users":[{"user_id":"alice","tag":"bot"}]}`, ts.readFile(t, "yellow_list.json"))
}

func TestAddUser_RejectsChineseUsername(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)

	resp := ts.api.Post("/api/v1/users", authz, map[string]any{"username": "用户", "tier": "normal"})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	env := decodeEnvelope[any](t, resp)
	assert.Equal(t, "VALIDATION", env.Code)
}

func TestEditUser(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)
	ts.writeFile(t, "black_list.json", `{"users":[{"user_id":"eve","tag":"scam"}]}`)

	resp := ts.api.Patch("/api/v1/users/danger/eve", authz, map[string]any{"tag": "bot farm"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"users":[{"user_id":"eve","tag":"bot farm"}]}`, ts.readFile(t, "black_list.json"))

	resp = ts.api.Patch("/api/v1/users/danger/nobody", authz, map[string]any{"tag": "x"})
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, resp).Code)
}

func TestDeleteUser(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)
	ts.writeFile(t, "normal_list.json", `{"users":[{"user_id":"alice","tag":"a"},{"user_id":"bob","tag":"b"}]}`)

	resp := ts.api.Delete("/api/v1/users/normal/alice", authz)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"users":[{"user_id":"bob","tag":"b"}]}`, ts.readFile(t, "normal_list.json"))

	resp = ts.api.Delete("/api/v1/users/normal/alice", authz)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestBatchDeleteUsers(t *testing.T) {
	ts := setupTestServer(t)
	authz := ts.login(t)
	ts.writeFile(t, "yellow_list.json", `{"users":[{"user_id":"a","tag":"1"},{"user_id":"b","tag":"2"},{"user_id":"c","tag":"3"}]}`)

	resp := ts.api.Post("/api/v1/users/batch-delete", authz, map[string]any{
		"tier":      "warning",
		"usernames": []string{"a", "c", "missing"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decodeEnvelope[RemovedResponse](t, resp)
	assert.Equal(t, 2, env.Data.Removed)
	assert.JSONEq(t, `{"users":[{"user_id":"b","tag":"2"}]}`, ts.readFile(t, "yellow_list.json"))
}
