package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
	"github.com/qkfdcom/lcqk/internal/metadata/xapi"
	"github.com/qkfdcom/lcqk/internal/store/lists"
)

// IdentifierService resolves usernames to external IDs and keeps the
// identifier cache up to date.
type IdentifierService struct {
	lists    *lists.Store
	resolver Resolver
	logger   *slog.Logger
}

// NewIdentifierService creates a new identifier service.
func NewIdentifierService(store *lists.Store, resolver Resolver, logger *slog.Logger) *IdentifierService {
	return &IdentifierService{lists: store, resolver: resolver, logger: logger}
}

// ResolveResult is the outcome of a single resolution.
type ResolveResult struct {
	Username string `json:"username"`
	UserID   string `json:"userid"`
}

// Resolve looks up one username and caches the mapping under its
// normalized form.
func (s *IdentifierService) Resolve(ctx context.Context, username string) (*ResolveResult, error) {
	name := xapi.Normalize(username)
	if name == "" {
		return nil, domainerrors.ValidationWithDetails("username is required", map[string]string{"username": "username is required"})
	}
	if !s.resolver.Configured() {
		return nil, domainerrors.PreconditionFailed("X API bearer token is not configured")
	}

	id, err := s.resolver.ResolveOne(ctx, name)
	if err != nil {
		return nil, mapLookupError(name, err)
	}

	if _, err := s.lists.MergeIdentifiers(ctx, map[string]string{name: id}); err != nil {
		return nil, err
	}

	s.logger.Info("identifier resolved", "username", name, "userid", id)
	return &ResolveResult{Username: name, UserID: id}, nil
}

// BackfillResult summarizes a batch backfill for one tier.
type BackfillResult struct {
	Tier       domain.Tier    `json:"tier"`
	Requested  int            `json:"requested"`
	Resolved   int            `json:"resolved"`
	NewIDs     int            `json:"new_ids"`
	Failed     []xapi.Failure `json:"failed"`
	Pending    []string       `json:"pending,omitempty"`
	Incomplete bool           `json:"incomplete"`
	Message    string         `json:"message"`
}

// Backfill resolves every username in the tier that has no cached ID yet.
// IDs resolved before a cancellation are still cached.
func (s *IdentifierService) Backfill(ctx context.Context, tierName string) (*BackfillResult, error) {
	if tierName == "" {
		tierName = string(domain.TierWarning)
	}
	tier, err := parseTier(tierName)
	if err != nil {
		return nil, err
	}
	if !s.resolver.Configured() {
		return nil, domainerrors.PreconditionFailed("X API bearer token is not configured")
	}
	if !s.lists.TierExists(tier) {
		return nil, domainerrors.PreconditionFailedf("%s does not exist", tier.FileName())
	}

	doc, err := s.lists.ReadTier(ctx, tier)
	if err != nil {
		return nil, err
	}
	cached, err := s.lists.LoadIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	// The cache is keyed by the stored user_id so merged reads find it;
	// the resolver strips "@" only for the request.
	var missing []string
	seen := make(map[string]struct{}, len(doc.Users))
	for _, e := range doc.Users {
		if xapi.Normalize(e.UserID) == "" {
			continue
		}
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		if _, ok := cached[e.UserID]; !ok {
			missing = append(missing, e.UserID)
		}
	}

	result := &BackfillResult{Tier: tier, Failed: []xapi.Failure{}}
	if len(missing) == 0 {
		result.Message = "no new users"
		return result, nil
	}

	s.logger.Info("identifier backfill started", "tier", tier, "usernames", len(missing))

	batch := s.resolver.ResolveBatch(ctx, missing)

	// The merge must survive a cancelled request context.
	added, err := s.lists.MergeIdentifiers(context.WithoutCancel(ctx), batch.Resolved)
	if err != nil {
		return nil, err
	}

	result.Requested = len(missing)
	result.Resolved = len(batch.Resolved)
	result.NewIDs = added
	result.Failed = batch.Failed
	result.Pending = batch.Pending
	result.Incomplete = batch.Incomplete
	result.Message = "backfill finished"
	if batch.Incomplete {
		result.Message = "backfill interrupted"
	}

	s.logger.Info("identifier backfill finished",
		"tier", tier,
		"requested", result.Requested,
		"resolved", result.Resolved,
		"failed", len(result.Failed),
		"incomplete", result.Incomplete,
	)
	return result, nil
}

// mapLookupError turns resolver failures into domain errors.
func mapLookupError(username string, err error) error {
	switch {
	case errors.Is(err, xapi.ErrNotFound):
		return domainerrors.NotFoundf("user %s not found", username)
	case errors.Is(err, xapi.ErrRateLimited):
		return domainerrors.Wrap(err, domainerrors.CodeRateLimited, "X API rate limit reached, try again later")
	case errors.Is(err, xapi.ErrUnauthorized):
		return domainerrors.Wrap(err, domainerrors.CodeUpstreamAuth, "X API rejected the bearer token")
	case errors.Is(err, xapi.ErrNotConfigured):
		return domainerrors.PreconditionFailed("X API bearer token is not configured")
	case errors.Is(err, xapi.ErrInvalidUsername):
		return domainerrors.Validation("username is required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return domainerrors.Wrapf(err, domainerrors.CodeLookupFailed, "lookup of %s failed", username)
	}
}
