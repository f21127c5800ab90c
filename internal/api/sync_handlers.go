package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/qkfdcom/lcqk/internal/domain"
	"github.com/qkfdcom/lcqk/internal/service"
	"github.com/qkfdcom/lcqk/internal/store"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "syncSheet",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Sync from spreadsheet",
		Description: "Fetches the three tier ranges and overwrites the tier files. Nothing is written unless every fetch succeeds and every row is valid.",
		Tags:        []string{"Sync"},
		Security:    bearerSecurity,
	}, s.handleSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSyncRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/history",
		Summary:     "Sync history",
		Description: "Returns recorded sync runs, newest first",
		Tags:        []string{"Sync"},
		Security:    bearerSecurity,
	}, s.handleSyncHistory)
}

// SyncInput contains parameters for triggering a sync.
type SyncInput struct {
	Authorization string `header:"Authorization"`
}

// SyncOutput wraps the sync result for Huma.
type SyncOutput struct {
	Body *service.SyncResult
}

// SyncHistoryInput contains pagination parameters for sync history.
type SyncHistoryInput struct {
	Authorization string `header:"Authorization"`
	Limit         int    `query:"limit" doc:"Items per page (default 20, max 100)"`
	Cursor        string `query:"cursor" doc:"Pagination cursor"`
}

// SyncHistoryOutput wraps the history page for Huma.
type SyncHistoryOutput struct {
	Body *store.PaginatedResult[*domain.SyncRun]
}

func (s *Server) handleSync(ctx context.Context, input *SyncInput) (*SyncOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	result, err := s.services.Sync.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncOutput{Body: result}, nil
}

func (s *Server) handleSyncHistory(ctx context.Context, input *SyncHistoryInput) (*SyncHistoryOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	page, err := s.services.Sync.History(ctx, store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, err
	}
	return &SyncHistoryOutput{Body: page}, nil
}
