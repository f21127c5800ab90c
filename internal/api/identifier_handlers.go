package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/qkfdcom/lcqk/internal/service"
)

func (s *Server) registerIdentifierRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "resolveIdentifier",
		Method:      http.MethodPost,
		Path:        "/api/v1/identifiers/resolve",
		Summary:     "Resolve username",
		Description: "Looks up the external user ID for one username and caches it",
		Tags:        []string{"Identifiers"},
		Security:    bearerSecurity,
	}, s.handleResolveIdentifier)

	huma.Register(s.api, huma.Operation{
		OperationID: "backfillIdentifiers",
		Method:      http.MethodPost,
		Path:        "/api/v1/identifiers/backfill",
		Summary:     "Backfill identifiers",
		Description: "Resolves every username in a tier that has no cached ID. Defaults to the warning tier.",
		Tags:        []string{"Identifiers"},
		Security:    bearerSecurity,
	}, s.handleBackfillIdentifiers)
}

// ResolveRequest is the request body for resolving a username.
type ResolveRequest struct {
	Username string `json:"username" minLength:"1" doc:"Username, with or without a leading @"`
}

// ResolveInput wraps the resolve request for Huma.
type ResolveInput struct {
	Authorization string `header:"Authorization"`
	Body          ResolveRequest
}

// ResolveOutput wraps the resolve result for Huma.
type ResolveOutput struct {
	Body *service.ResolveResult
}

// BackfillRequest is the request body for a backfill.
type BackfillRequest struct {
	Tier string `json:"tier,omitempty" doc:"Tier to backfill (default warning)"`
}

// BackfillInput wraps the backfill request for Huma.
type BackfillInput struct {
	Authorization string `header:"Authorization"`
	Body          BackfillRequest
}

// BackfillOutput wraps the backfill result for Huma.
type BackfillOutput struct {
	Body *service.BackfillResult
}

func (s *Server) handleResolveIdentifier(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	result, err := s.services.Identifier.Resolve(ctx, input.Body.Username)
	if err != nil {
		return nil, err
	}
	return &ResolveOutput{Body: result}, nil
}

func (s *Server) handleBackfillIdentifiers(ctx context.Context, input *BackfillInput) (*BackfillOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	result, err := s.services.Identifier.Backfill(ctx, input.Body.Tier)
	if err != nil {
		return nil, err
	}
	return &BackfillOutput{Body: result}, nil
}
