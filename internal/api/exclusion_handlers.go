package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Server) registerExclusionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listExclusions",
		Method:      http.MethodGet,
		Path:        "/api/v1/exclusions",
		Summary:     "List import exclusions",
		Description: "Returns catalog ids blocked from automatic re-import after deletion",
		Tags:        []string{"Exclusions"},
	}, s.handleListExclusions)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addExclusion",
		Method:        http.MethodPost,
		Path:          "/api/v1/exclusions",
		Summary:       "Add import exclusion",
		Tags:          []string{"Exclusions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddExclusion)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeExclusion",
		Method:        http.MethodDelete,
		Path:          "/api/v1/exclusions/{id}",
		Summary:       "Remove import exclusion",
		Tags:          []string{"Exclusions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveExclusion)
}

// === DTOs ===

// ExclusionsResponse contains the exclusion list.
type ExclusionsResponse struct {
	Exclusions []*domain.ImportListExclusion `json:"exclusions" doc:"Import exclusions"`
	Total      int                           `json:"total" doc:"Number of exclusions"`
}

// ExclusionsOutput wraps the exclusion list for Huma.
type ExclusionsOutput struct {
	Body ExclusionsResponse
}

// AddExclusionInput wraps the add request body.
type AddExclusionInput struct {
	Body struct {
		ForeignID string `json:"foreign_id" minLength:"1" maxLength:"100" doc:"Catalog id to exclude"`
		Name      string `json:"name,omitempty" maxLength:"500" doc:"Display name for the excluded entity"`
	}
}

// ExclusionOutput wraps a single exclusion for Huma.
type ExclusionOutput struct {
	Body *domain.ImportListExclusion
}

// ExclusionIDInput identifies an exclusion by id.
type ExclusionIDInput struct {
	ID int64 `path:"id" doc:"Exclusion id"`
}

// === Handlers ===

func (s *Server) handleListExclusions(ctx context.Context, _ *struct{}) (*ExclusionsOutput, error) {
	exclusions, err := s.services.Exclusions.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ExclusionsOutput{Body: ExclusionsResponse{Exclusions: exclusions, Total: len(exclusions)}}, nil
}

func (s *Server) handleAddExclusion(ctx context.Context, input *AddExclusionInput) (*ExclusionOutput, error) {
	exclusion, err := s.services.Exclusions.Add(ctx, input.Body.ForeignID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ExclusionOutput{Body: exclusion}, nil
}

func (s *Server) handleRemoveExclusion(ctx context.Context, input *ExclusionIDInput) (*struct{}, error) {
	if err := s.services.Exclusions.Remove(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
