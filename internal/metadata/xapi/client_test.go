package xapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		BaseURL:     server.URL,
		BearerToken: "test-token",
		BaseDelay:   5 * time.Second,
		BatchPause:  10 * time.Second,
		RPS:         1000,
	}, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	client.http = server.Client()
	t.Cleanup(client.Close)

	var mu sync.Mutex
	waits := []time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, d)
		return nil
	}
	return client, &waits
}

func userJSON(id, username string) string {
	return `{"data": {"id": "` + id + `", "username": "` + username + `", "name": "Test"}}`
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  @alice  ", "alice"},
		{"@ alice", "alice"},
		{"", ""},
		{"@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestClient_ResolveOne_RequestShape(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("user.fields")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(userJSON("12345", "alice")))
	})

	id, err := client.ResolveOne(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
	assert.Equal(t, "/2/users/by/username/alice", gotPath)
	assert.Equal(t, "id,username,name", gotQuery)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestClient_ResolveOne_AtPrefixIsIgnored(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(userJSON("1", "alice")))
	})

	a, err := client.ResolveOne(context.Background(), "@alice")
	require.NoError(t, err)
	b, err := client.ResolveOne(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, paths, 2)
	assert.Equal(t, paths[0], paths[1])
}

func TestClient_ResolveOne_Classification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, "", ErrUnauthorized},
		{"server error", http.StatusInternalServerError, "boom", ErrLookupFailed},
		{"forbidden", http.StatusForbidden, "nope", ErrLookupFailed},
		{"missing data", http.StatusOK, `{"errors": [{"detail": "Could not find user"}]}`, ErrNotFound},
		{"empty id", http.StatusOK, `{"data": {"id": ""}}`, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, waits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.ResolveOne(context.Background(), "ghost")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, *waits, 2, "every failure is retried up to the attempt limit")

			var xErr *Error
			require.True(t, errors.As(err, &xErr))
			assert.Equal(t, "ghost", xErr.Username)
		})
	}
}

func TestClient_ResolveOne_StatusErrorCarriesCode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.ResolveOne(context.Background(), "alice")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestClient_ResolveOne_ThrottledTwiceThenSuccess(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client, waits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(userJSON("42", "alice")))
	})

	id, err := client.ResolveOne(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, *waits)
}

func TestClient_ResolveOne_ServerErrorThenThrottledThenSuccess(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client, waits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		switch n {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(userJSON("42", "alice")))
		}
	})

	_, err := client.ResolveOne(context.Background(), "alice")
	require.NoError(t, err)
	waitsGot := *waits
	require.Len(t, waitsGot, 2)
	assert.Equal(t, 2*waitsGot[0], waitsGot[1])
}

func TestClient_ResolveOne_Preconditions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.ResolveOne(context.Background(), " @ ")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	client.cfg.BearerToken = ""
	assert.False(t, client.Configured())
	_, err = client.ResolveOne(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_ResolveBatch_GroupsAndIsolation(t *testing.T) {
	var mu sync.Mutex
	var events []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/2/users/by/username/")
		mu.Lock()
		events = append(events, name)
		mu.Unlock()
		if name == "b" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(userJSON("id-"+name, name)))
	})
	client.sleep = func(_ context.Context, d time.Duration) error {
		if d == client.cfg.BatchPause {
			mu.Lock()
			events = append(events, "PAUSE")
			mu.Unlock()
		}
		return nil
	}

	result := client.ResolveBatch(context.Background(), []string{"a", "b", "c", "d"})

	assert.Equal(t, map[string]string{"a": "id-a", "c": "id-c", "d": "id-d"}, result.Resolved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "b", result.Failed[0].Username)
	assert.False(t, result.Incomplete)

	// First group: a, b (three attempts), c. Then exactly one pause. Then d.
	pauseAt := -1
	pauses := 0
	for i, e := range events {
		if e == "PAUSE" {
			pauseAt = i
			pauses++
		}
	}
	require.Equal(t, 1, pauses, "one pause between two groups, none after the last")
	assert.ElementsMatch(t, []string{"a", "b", "b", "b", "c"}, events[:pauseAt])
	assert.Equal(t, []string{"d"}, events[pauseAt+1:])
}

func TestClient_ResolveBatch_Concurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		maxInFlight = max(maxInFlight, inFlight)
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		w.Write([]byte(userJSON("1", "x")))
	})

	result := client.ResolveBatch(context.Background(), []string{"a", "b", "c", "d", "e", "f", "g"})
	assert.Len(t, result.Resolved, 7)
	assert.LessOrEqual(t, maxInFlight, 3)
}

func TestClient_ResolveBatch_Dedupes(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Write([]byte(userJSON("1", "alice")))
	})

	result := client.ResolveBatch(context.Background(), []string{"alice", "@alice", " ", "alice "})
	assert.Equal(t, map[string]string{"alice": "1", "@alice": "1", "alice ": "1"}, result.Resolved)
	assert.Equal(t, 1, calls)
}

func TestClient_ResolveBatch_KeysResultsByCallerSpelling(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/2/users/by/username/")
		if name == "ghost" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(userJSON("id-"+name, name)))
	})
	client.sleep = func(context.Context, time.Duration) error { return nil }

	result := client.ResolveBatch(context.Background(), []string{"@bob", "@ghost"})

	assert.Equal(t, map[string]string{"@bob": "id-bob"}, result.Resolved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "@ghost", result.Failed[0].Username)
}

func TestClient_ResolveBatch_CancelledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userJSON("1", "x")))
	})
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	result := client.ResolveBatch(ctx, []string{"a", "b", "c", "d", "e"})
	assert.Len(t, result.Resolved, 3)
	assert.True(t, result.Incomplete)
	assert.Equal(t, []string{"d", "e"}, result.Pending)
	assert.Empty(t, result.Failed)
}

func TestClient_ResolveBatch_Empty(t *testing.T) {
	client, waits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	result := client.ResolveBatch(context.Background(), nil)
	assert.Empty(t, result.Resolved)
	assert.Empty(t, result.Failed)
	assert.False(t, result.Incomplete)
	assert.Empty(t, *waits)
}
