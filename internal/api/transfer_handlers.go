package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
)

func (s *Server) registerTransferRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "exportLists",
		Method:      http.MethodGet,
		Path:        "/api/v1/export",
		Summary:     "Export lists",
		Description: "Returns one tier document, or all three keyed by tier when type=all",
		Tags:        []string{"Transfer"},
		Security:    bearerSecurity,
	}, s.handleExport)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importList",
		Method:       http.MethodPost,
		Path:         "/api/v1/import",
		Summary:      "Import list",
		Description:  "Replaces one tier file with the uploaded document. Nothing is written if any username is invalid.",
		Tags:         []string{"Transfer"},
		Security:     bearerSecurity,
		MaxBodyBytes: MaxImportSize,
	}, s.handleImport)
}

// MaxImportSize bounds the import request body (10 MB).
const MaxImportSize = 10 << 20

// ExportInput contains parameters for exporting.
type ExportInput struct {
	Authorization string `header:"Authorization"`
	Type          string `query:"type" default:"all" doc:"normal, warning, danger or all"`
}

// ExportOutput wraps the exported documents for Huma.
type ExportOutput struct {
	Body any
}

// ImportRequest is the request body for importing a tier.
type ImportRequest struct {
	Type string `json:"type" doc:"Tier to replace: normal, warning or danger"`
	Data any    `json:"data" doc:"Tier document: {\"users\": [{\"user_id\": \"...\", \"tag\": \"...\"}]}"`
}

// ImportInput wraps the import request for Huma.
type ImportInput struct {
	Authorization string `header:"Authorization"`
	Body          ImportRequest
}

// ImportResponse reports the imported entry count.
type ImportResponse struct {
	Type     string `json:"type" doc:"Tier that was replaced"`
	Imported int    `json:"imported" doc:"Number of entries written"`
}

// ImportOutput wraps the import response for Huma.
type ImportOutput struct {
	Body ImportResponse
}

func (s *Server) handleExport(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	data, err := s.services.List.Export(ctx, input.Type)
	if err != nil {
		return nil, err
	}
	return &ExportOutput{Body: data}, nil
}

func (s *Server) handleImport(ctx context.Context, input *ImportInput) (*ImportOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(input.Body.Data)
	if err != nil {
		return nil, domainerrors.Validation("data is not a JSON document")
	}

	n, err := s.services.List.Import(ctx, input.Body.Type, raw)
	if err != nil {
		return nil, err
	}
	return &ImportOutput{Body: ImportResponse{Type: input.Body.Type, Imported: n}}, nil
}
