// Package xapi resolves platform usernames to numeric account IDs through
// the X (Twitter) v2 user lookup endpoint.
package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qkfdcom/lcqk/internal/ratelimit"
	"github.com/qkfdcom/lcqk/internal/retry"
)

const (
	defaultBaseURL = "https://api.twitter.com"

	// Client side smoothing on top of the fixed retry and batch pauses.
	defaultRPS   = 2.0
	defaultBurst = 3

	defaultTimeout = 30 * time.Second

	userFields = "id,username,name"

	// Error bodies are truncated before being wrapped.
	maxErrorBody = 512
)

// Config controls lookup behavior. Zero values take the defaults noted.
type Config struct {
	BaseURL     string // default https://api.twitter.com
	BearerToken string
	MaxAttempts int           // default 3
	BaseDelay   time.Duration // default 5s, doubled after a 429
	BatchSize   int           // default 3
	BatchPause  time.Duration // default 10s
	RPS         float64       // default 2
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 10 * time.Second
	}
	if c.RPS <= 0 {
		c.RPS = defaultRPS
	}
}

// Client is a rate-limited X user lookup client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	cfg     Config
	host    string
	sleep   retry.Sleeper
}

// New creates a new lookup client.
func New(cfg Config, logger *slog.Logger) *Client {
	cfg.applyDefaults()
	host := cfg.BaseURL
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(cfg.RPS, defaultBurst),
		logger:  logger,
		cfg:     cfg,
		host:    host,
		sleep:   retry.Sleep,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Configured reports whether a bearer token is available.
func (c *Client) Configured() bool {
	return c.cfg.BearerToken != ""
}

// Normalize strips surrounding whitespace and a leading "@".
func Normalize(username string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

type lookupResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"data"`
}

// lookup performs exactly one request for an already normalized username.
func (c *Client) lookup(ctx context.Context, username string) (string, error) {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	query := url.Values{}
	query.Set("user.fields", userFields)
	endpoint := c.cfg.BaseURL + "/2/users/by/username/" + url.PathEscape(username) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	req.Header.Set("User-Agent", "lcqk/1.0")

	c.logger.Debug("x user lookup", "username", username)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return "", ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Data == nil || parsed.Data.ID == "" {
		return "", ErrNotFound
	}
	return parsed.Data.ID, nil
}

// ResolveOne returns the external ID for username, retrying failed requests.
// The username is normalized first, so "@alice" and "alice" issue the same
// request.
func (c *Client) ResolveOne(ctx context.Context, username string) (string, error) {
	name := Normalize(username)
	if name == "" {
		return "", wrapError("resolve", username, ErrInvalidUsername)
	}
	if !c.Configured() {
		return "", wrapError("resolve", name, ErrNotConfigured)
	}

	runner := retry.Runner{
		Policy: retry.Policy{
			MaxAttempts: c.cfg.MaxAttempts,
			BaseDelay:   c.cfg.BaseDelay,
			Escalate:    func(err error) bool { return errors.Is(err, ErrRateLimited) },
			Retryable: func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			},
		},
		Sleep: c.sleep,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("x user lookup failed, retrying",
				"username", name,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		},
	}

	id, err := retry.Do(ctx, runner, func(ctx context.Context) (string, error) {
		return c.lookup(ctx, name)
	})
	if err != nil {
		return "", wrapError("resolve", name, err)
	}
	return id, nil
}
