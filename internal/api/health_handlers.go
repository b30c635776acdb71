package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status",
		Tags:        []string{"System"},
	}, s.handleHealthCheck)
}

// HealthResponse contains the health check result.
type HealthResponse struct {
	Status     string    `json:"status" doc:"Health status"`
	Time       time.Time `json:"time" doc:"Server time"`
	Refreshing bool      `json:"refreshing" doc:"Whether a library refresh is in progress"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	return &HealthOutput{
		Body: HealthResponse{
			Status:     "healthy",
			Time:       time.Now(),
			Refreshing: s.sseManager.IsRefreshing(),
		},
	}, nil
}
