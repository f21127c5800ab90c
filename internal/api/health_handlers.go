package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
	Sheets     bool                       `json:"sheets_configured" doc:"Whether spreadsheet sync credentials are set"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"data":  s.checkDataDir(),
		"state": s.checkState(ctx),
	}

	overall := "healthy"
	if components["data"].Status != "healthy" {
		overall = "unhealthy"
	} else if components["state"].Status != "healthy" {
		overall = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
			Sheets:     s.services.Sync != nil && s.services.Sync.Configured(),
		},
	}, nil
}

// checkDataDir verifies the list directory exists.
func (s *Server) checkDataDir() ComponentHealth {
	info, err := os.Stat(s.opts.DataDir)
	if err != nil {
		return ComponentHealth{Status: "unhealthy", Message: "data directory not accessible"}
	}
	if !info.IsDir() {
		return ComponentHealth{Status: "unhealthy", Message: "data path is not a directory"}
	}
	return ComponentHealth{Status: "healthy"}
}

// checkState verifies the Badger state store is accessible.
func (s *Server) checkState(ctx context.Context) ComponentHealth {
	if s.opts.State == nil {
		return ComponentHealth{Status: "unhealthy", Message: "state store not configured"}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.opts.State.Ping(ctx); err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: time.Since(start).String(),
			Message: "state store unreachable",
		}
	}
	return ComponentHealth{Status: "healthy", Latency: time.Since(start).String()}
}
