// Package retry runs an operation under a bounded attempt policy with a
// fixed delay that doubles after rate-limit failures.
//
// The policy is a small state machine:
//
//	Attempt(n) --ok--> Done
//	Attempt(n) --err, n < max--> Wait(d) --> Attempt(n+1)
//	Attempt(n) --err, n == max--> Exhausted
//
// d is BaseDelay, or twice BaseDelay when the failure that ended Attempt(n)
// satisfies Escalate. No wait follows the final attempt.
package retry

import (
	"context"
	"time"
)

// State is a position in the retry state machine.
type State int

const (
	// StateAttempt means the operation should be invoked.
	StateAttempt State = iota
	// StateWait means the machine is pausing before the next attempt.
	StateWait
	// StateDone means the last attempt succeeded.
	StateDone
	// StateExhausted means the last attempt failed and no attempts remain.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempt:
		return "attempt"
	case StateWait:
		return "wait"
	case StateDone:
		return "done"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Policy configures the machine.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Escalate reports whether err should double the following wait.
	Escalate func(err error) bool
	// Retryable reports whether err may be retried at all. Nil retries everything.
	Retryable func(err error) bool
}

// Next returns the state that follows attempt number attempt (1-based)
// ending with err, and the wait to apply when that state is StateWait.
func (p Policy) Next(attempt int, err error) (State, time.Duration) {
	if err == nil {
		return StateDone, 0
	}
	if attempt >= p.MaxAttempts {
		return StateExhausted, 0
	}
	if p.Retryable != nil && !p.Retryable(err) {
		return StateExhausted, 0
	}
	d := p.BaseDelay
	if p.Escalate != nil && p.Escalate(err) {
		d *= 2
	}
	return StateWait, d
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Observer is told about every scheduled wait.
type Observer func(attempt int, err error, wait time.Duration)

// Runner drives operations through a Policy.
type Runner struct {
	Policy  Policy
	Sleep   Sleeper
	OnRetry Observer
}

// Do invokes op until it succeeds or the policy is exhausted. When
// exhausted, the error from the final attempt is returned. A cancelled
// context during a wait returns the context error.
func Do[T any](ctx context.Context, r Runner, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var zero T
	state := StateAttempt
	attempt := 0
	var wait time.Duration
	var lastErr error

	for {
		switch state {
		case StateAttempt:
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			attempt++
			v, err := op(ctx)
			if err == nil {
				return v, nil
			}
			lastErr = err
			state, wait = r.Policy.Next(attempt, err)

		case StateWait:
			if r.OnRetry != nil {
				r.OnRetry(attempt, lastErr, wait)
			}
			if err := sleep(ctx, wait); err != nil {
				return zero, err
			}
			state = StateAttempt

		case StateExhausted:
			return zero, lastErr

		case StateDone:
			// Next only yields Done for a nil error, which returns above.
			return zero, lastErr
		}
	}
}
