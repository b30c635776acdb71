package service

import (
	"context"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// ExclusionService manages the "never import" list. Excluded catalog ids are
// filtered out of remote children before the refresh diff runs.
type ExclusionService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewExclusionService creates a new exclusion service.
func NewExclusionService(store *store.Store, logger *logger.Logger) *ExclusionService {
	return &ExclusionService{store: store, logger: logger}
}

// List returns every exclusion.
func (s *ExclusionService) List(ctx context.Context) ([]*domain.ImportListExclusion, error) {
	return s.store.ListExclusions(ctx)
}

// Add excludes a catalog id from future imports.
func (s *ExclusionService) Add(ctx context.Context, foreignID, name string) (*domain.ImportListExclusion, error) {
	if foreignID == "" {
		return nil, errors.Validation("foreign id is required", "foreign_id", "")
	}
	exclusion := &domain.ImportListExclusion{ForeignID: foreignID, Name: name}
	if err := s.store.AddExclusion(ctx, exclusion); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.AlreadyExists("catalog id already excluded")
		}
		return nil, err
	}
	s.logger.Info("import exclusion added", "foreignID", foreignID, "name", name)
	return exclusion, nil
}

// Remove deletes an exclusion by id.
func (s *ExclusionService) Remove(ctx context.Context, id int64) error {
	return s.store.RemoveExclusion(ctx, id)
}
