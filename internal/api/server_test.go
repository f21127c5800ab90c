package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/qkfdcom/lcqk/internal/auth"
	"github.com/qkfdcom/lcqk/internal/metadata/xapi"
	"github.com/qkfdcom/lcqk/internal/service"
	"github.com/qkfdcom/lcqk/internal/sheets"
	"github.com/qkfdcom/lcqk/internal/store"
	"github.com/qkfdcom/lcqk/internal/store/lists"
)

const testPassword = "correct horse battery staple"

// testEnvelope decodes either envelope shape.
type testEnvelope[T any] struct {
	V       int             `json:"v"`
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	require.Equal(t, EnvelopeVersion, env.V)
	return env
}

// stubResolver answers lookups from a fixed table.
type stubResolver struct {
	ids map[string]string
}

func (r *stubResolver) Configured() bool { return r.ids != nil }

func (r *stubResolver) ResolveOne(_ context.Context, username string) (string, error) {
	if id, ok := r.ids[username]; ok {
		return id, nil
	}
	return "", xapi.ErrNotFound
}

func (r *stubResolver) ResolveBatch(ctx context.Context, usernames []string) xapi.BatchResult {
	result := xapi.BatchResult{Resolved: map[string]string{}, Failed: []xapi.Failure{}}
	for _, u := range usernames {
		id, err := r.ResolveOne(ctx, u)
		if err != nil {
			result.Failed = append(result.Failed, xapi.Failure{Username: u, Error: err.Error()})
			continue
		}
		result.Resolved[u] = id
	}
	return result
}

type serverOptions struct {
	fetcher        sheets.RangeFetcher
	resolver       *stubResolver
	loginRateLimit int
}

type testServer struct {
	*Server
	api   humatest.TestAPI
	lists *lists.Store
	state *store.Store
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWith(t, serverOptions{})
}

func setupTestServerWith(t *testing.T, o serverOptions) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dataDir := t.TempDir()
	listStore := lists.New(dataDir, logger)

	state, err := store.NewInMemory(logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), 15*time.Minute)
	require.NoError(t, err)
	password, err := auth.NewPasswordVerifier(testPassword)
	require.NoError(t, err)

	resolver := o.resolver
	if resolver == nil {
		resolver = &stubResolver{}
	}

	services := &Services{
		Auth:       service.NewAuthService(password, tokens, state, "lcqk-test", logger),
		List:       service.NewListService(listStore, logger),
		Identifier: service.NewIdentifierService(listStore, resolver, logger),
		Sync:       service.NewSyncService(listStore, o.fetcher, "sheet-1", state, logger),
	}

	srv := NewServer(services, Options{
		CORSOrigins:    []string{"*"},
		LoginRateLimit: o.loginRateLimit,
		DataDir:        dataDir,
		State:          state,
	}, logger)

	t.Cleanup(func() {
		srv.Close()
		_ = state.Close()
	})

	return &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.API()),
		lists:  listStore,
		state:  state,
	}
}

// login returns an Authorization header for the operator.
func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/auth/login", map[string]any{"password": testPassword})
	require.Equal(t, 200, resp.Code, resp.Body.String())

	env := decodeEnvelope[LoginResponse](t, resp)
	require.NotEmpty(t, env.Data.Token)
	return "Authorization: Bearer " + env.Data.Token
}

func (ts *testServer) writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(ts.lists.Dir(), name), []byte(content), 0o644))
}

func (ts *testServer) readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(ts.lists.Dir(), name))
	require.NoError(t, err)
	return string(data)
}
