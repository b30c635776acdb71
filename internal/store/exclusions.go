package store

import (
	"context"
	"errors"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initExclusions() error {
	exclusions, err := NewEntity(s, "exclusion:",
		func(x *domain.ImportListExclusion) int64 { return x.ID },
		func(x *domain.ImportListExclusion, id int64) { x.ID = id },
	)
	if err != nil {
		return err
	}

	s.Exclusions = exclusions.
		WithUniqueIndex("foreign", func(x *domain.ImportListExclusion) []string {
			return []string{x.ForeignID}
		})

	return nil
}

// FindExclusionByForeignID looks up an exclusion by catalog id.
// Returns nil (no error) when none exists.
func (s *Store) FindExclusionByForeignID(ctx context.Context, foreignID string) (*domain.ImportListExclusion, error) {
	exclusion, err := s.Exclusions.GetByIndex(ctx, "foreign", foreignID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return exclusion, nil
}

// FindExcludedForeignIDs filters the candidate ids down to those the user
// has excluded. The refresh engine drops matching remote children before
// diffing.
func (s *Store) FindExcludedForeignIDs(ctx context.Context, candidateIDs []string) (map[string]bool, error) {
	excluded := make(map[string]bool)
	for _, foreignID := range candidateIDs {
		exclusion, err := s.FindExclusionByForeignID(ctx, foreignID)
		if err != nil {
			return nil, err
		}
		if exclusion != nil {
			excluded[foreignID] = true
		}
	}
	return excluded, nil
}

// ListExclusions returns every import-list exclusion.
func (s *Store) ListExclusions(ctx context.Context) ([]*domain.ImportListExclusion, error) {
	return s.Exclusions.All(ctx)
}

// AddExclusion inserts a new exclusion. Returns ErrAlreadyExists when the
// catalog id is already excluded.
func (s *Store) AddExclusion(ctx context.Context, exclusion *domain.ImportListExclusion) error {
	return s.Exclusions.Insert(ctx, exclusion)
}

// RemoveExclusion deletes an exclusion by id. Idempotent.
func (s *Store) RemoveExclusion(ctx context.Context, id int64) error {
	return s.Exclusions.Delete(ctx, id)
}

// UpdateExclusionForeignID re-points an exclusion when the catalog moves an
// entity to a new id. No-op when the old id is not excluded.
func (s *Store) UpdateExclusionForeignID(ctx context.Context, oldForeignID, newForeignID string) error {
	exclusion, err := s.FindExclusionByForeignID(ctx, oldForeignID)
	if err != nil || exclusion == nil {
		return err
	}
	exclusion.ForeignID = newForeignID
	return s.Exclusions.Update(ctx, exclusion)
}
