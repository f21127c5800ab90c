// Package service holds the application operations behind the HTTP API.
// Services validate input, call the stores and collaborators, and return
// domain errors the API layer can map to responses.
package service

import (
	"context"

	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
	"github.com/qkfdcom/lcqk/internal/metadata/xapi"
	"github.com/qkfdcom/lcqk/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// Resolver looks up external identifiers for usernames.
type Resolver interface {
	Configured() bool
	ResolveOne(ctx context.Context, username string) (string, error)
	ResolveBatch(ctx context.Context, usernames []string) xapi.BatchResult
}

func parseTier(s string) (domain.Tier, error) {
	t, err := domain.ParseTier(s)
	if err != nil {
		return "", domainerrors.ValidationWithDetails("invalid tier", map[string]string{"tier": err.Error()})
	}
	return t, nil
}

// parseTierOrAll returns nil for an empty or "all" selector.
func parseTierOrAll(s string) (*domain.Tier, error) {
	if s == "" || s == "all" {
		return nil, nil
	}
	t, err := parseTier(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
