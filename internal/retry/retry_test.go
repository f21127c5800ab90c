package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errThrottled = errors.New("throttled")
	errServer    = errors.New("server error")
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		Escalate:    func(err error) bool { return errors.Is(err, errThrottled) },
	}
}

// scripted returns an op that yields the given errors in order, then "ok".
func scripted(errs ...error) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		i := calls
		calls++
		if i < len(errs) && errs[i] != nil {
			return "", errs[i]
		}
		return "ok", nil
	}, &calls
}

func recordingSleeper(waits *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestPolicy_Next(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name      string
		attempt   int
		err       error
		wantState State
		wantWait  time.Duration
	}{
		{"success", 1, nil, StateDone, 0},
		{"plain failure", 1, errServer, StateWait, 5 * time.Second},
		{"throttled failure", 2, errThrottled, StateWait, 10 * time.Second},
		{"final attempt", 3, errThrottled, StateExhausted, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, wait := p.Next(tt.attempt, tt.err)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantWait, wait)
		})
	}
}

func TestPolicy_NotRetryable(t *testing.T) {
	p := testPolicy()
	p.Retryable = func(err error) bool { return !errors.Is(err, errServer) }

	state, _ := p.Next(1, errServer)
	assert.Equal(t, StateExhausted, state)
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	var waits []time.Duration
	op, calls := scripted()

	v, err := Do(context.Background(), Runner{Policy: testPolicy(), Sleep: recordingSleeper(&waits)}, op)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, waits)
}

func TestDo_ThrottledTwiceThenSuccess(t *testing.T) {
	var waits []time.Duration
	op, calls := scripted(errThrottled, errThrottled)

	v, err := Do(context.Background(), Runner{Policy: testPolicy(), Sleep: recordingSleeper(&waits)}, op)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, waits)
}

func TestDo_ServerThenThrottledThenSuccess(t *testing.T) {
	var waits []time.Duration
	op, calls := scripted(errServer, errThrottled)

	_, err := Do(context.Background(), Runner{Policy: testPolicy(), Sleep: recordingSleeper(&waits)}, op)
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	// The second wait is double the first because its preceding failure was throttled.
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, waits)
}

func TestDo_ExhaustedReturnsLastError(t *testing.T) {
	var waits []time.Duration
	op, calls := scripted(errThrottled, errThrottled, errServer)

	_, err := Do(context.Background(), Runner{Policy: testPolicy(), Sleep: recordingSleeper(&waits)}, op)
	assert.ErrorIs(t, err, errServer)
	assert.Equal(t, 3, *calls)
	assert.Len(t, waits, 2, "no wait after the final attempt")
}

func TestDo_ObserverSeesEachWait(t *testing.T) {
	var seen []int
	op, _ := scripted(errServer, errServer)

	r := Runner{
		Policy:  testPolicy(),
		Sleep:   func(context.Context, time.Duration) error { return nil },
		OnRetry: func(attempt int, _ error, _ time.Duration) { seen = append(seen, attempt) },
	}
	_, err := Do(context.Background(), r, op)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op, calls := scripted(errServer, errServer)

	r := Runner{
		Policy: testPolicy(),
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	_, err := Do(ctx, r, op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}

func TestSleep_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep_Elapses(t *testing.T) {
	err := Sleep(context.Background(), time.Millisecond)
	assert.NoError(t, err)
}
