package xapi

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Failure is one username that could not be resolved.
type Failure struct {
	Username string `json:"username"`
	Error    string `json:"error"`
}

// BatchResult is the outcome of ResolveBatch. Resolved holds only usernames
// that produced an ID; absence means "not yet resolved". Every key is the
// username exactly as the caller passed it.
type BatchResult struct {
	Resolved map[string]string `json:"resolved"`
	Failed   []Failure         `json:"failed"`
	// Pending lists usernames not attempted, or interrupted, because the
	// context ended. Incomplete is set whenever Pending is non-empty.
	Pending    []string `json:"pending,omitempty"`
	Incomplete bool     `json:"incomplete"`
}

type slot struct {
	id  string
	err error
}

// ResolveBatch resolves usernames in groups of BatchSize. Lookups inside a
// group run concurrently; groups run one after another with BatchPause
// between them. A failing username never affects its siblings.
func (c *Client) ResolveBatch(ctx context.Context, usernames []string) BatchResult {
	targets := dedupe(usernames)
	result := BatchResult{Resolved: make(map[string]string, len(usernames)), Failed: []Failure{}}

	size := c.cfg.BatchSize
	for start := 0; start < len(targets); start += size {
		if start > 0 {
			if err := c.sleep(ctx, c.cfg.BatchPause); err != nil {
				result.markPending(targets[start:]...)
				break
			}
		}
		if ctx.Err() != nil {
			result.markPending(targets[start:]...)
			break
		}

		end := min(start+size, len(targets))
		group := targets[start:end]
		slots := make([]slot, len(group))

		var g errgroup.Group
		for i, tg := range group {
			g.Go(func() error {
				id, err := c.ResolveOne(ctx, tg.name)
				slots[i] = slot{id: id, err: err}
				return nil
			})
		}
		_ = g.Wait() // goroutines never return an error; failures live in slots

		for i, s := range slots {
			tg := group[i]
			switch {
			case s.err == nil:
				for _, alias := range tg.aliases {
					result.Resolved[alias] = s.id
				}
			case errors.Is(s.err, context.Canceled) || errors.Is(s.err, context.DeadlineExceeded):
				result.markPending(tg)
			default:
				c.logger.Warn("x user lookup gave up", "username", tg.name, "error", s.err)
				for _, alias := range tg.aliases {
					result.Failed = append(result.Failed, Failure{Username: alias, Error: s.err.Error()})
				}
			}
		}

		c.logger.Info("x lookup group finished",
			"group", start/size+1,
			"size", len(group),
			"resolved_total", len(result.Resolved),
		)
	}

	return result
}

func (r *BatchResult) markPending(targets ...target) {
	for _, tg := range targets {
		r.Pending = append(r.Pending, tg.aliases...)
	}
	r.Incomplete = true
}

// target is one lookup shared by every spelling that normalizes to name.
type target struct {
	name    string
	aliases []string
}

// dedupe groups usernames by normalized form, dropping blanks and keeping
// first-seen order.
func dedupe(usernames []string) []target {
	index := make(map[string]int, len(usernames))
	out := make([]target, 0, len(usernames))
	for _, u := range usernames {
		n := Normalize(u)
		if n == "" {
			continue
		}
		if i, ok := index[n]; ok {
			if !slices.Contains(out[i].aliases, u) {
				out[i].aliases = append(out[i].aliases, u)
			}
			continue
		}
		index[n] = len(out)
		out = append(out, target{name: n, aliases: []string{u}})
	}
	return out
}
