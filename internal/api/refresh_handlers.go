package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerRefreshRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "refreshAuthors",
		Method:      http.MethodPost,
		Path:        "/api/v1/refresh/authors",
		Summary:     "Refresh authors",
		Description: "Refreshes the named authors from the catalog, isolating per-author failures",
		Tags:        []string{"Refresh"},
	}, s.handleRefreshAuthors)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshBooks",
		Method:      http.MethodPost,
		Path:        "/api/v1/refresh/books",
		Summary:     "Refresh books",
		Description: "Refreshes the named books from the catalog without touching their authors' other books",
		Tags:        []string{"Refresh"},
	}, s.handleRefreshBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshAll",
		Method:      http.MethodPost,
		Path:        "/api/v1/refresh/all",
		Summary:     "Refresh the whole library",
		Description: "Forces a catalog refresh of every author in the library",
		Tags:        []string{"Refresh"},
	}, s.handleRefreshAll)
}

// === DTOs ===

// RefreshInput names the entities to refresh.
type RefreshInput struct {
	Body struct {
		IDs []int64 `json:"ids" minItems:"1" maxItems:"1000" doc:"Library ids to refresh"`
	}
}

// RefreshOutput wraps the batch result for Huma.
type RefreshOutput struct {
	Body service.BatchResult
}

// === Handlers ===

func (s *Server) handleRefreshAuthors(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
	result, err := s.services.Refresh.RefreshAuthors(ctx, input.Body.IDs, true)
	if err != nil {
		return nil, err
	}
	return &RefreshOutput{Body: *result}, nil
}

func (s *Server) handleRefreshBooks(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
	result, err := s.services.BookRefresh.RefreshBooks(ctx, input.Body.IDs, true)
	if err != nil {
		return nil, err
	}
	return &RefreshOutput{Body: *result}, nil
}

func (s *Server) handleRefreshAll(ctx context.Context, _ *struct{}) (*RefreshOutput, error) {
	result, err := s.services.Refresh.RefreshAll(ctx, true, time.Time{})
	if err != nil {
		return nil, err
	}
	return &RefreshOutput{Body: *result}, nil
}
