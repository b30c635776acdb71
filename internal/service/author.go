// Package service provides the business logic layer: author and book
// management, metadata refresh orchestration and import-list exclusions.
package service

import (
	"context"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/match"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// AuthorService orchestrates author lookups in the library, including the
// inexact name matching used when no catalog id is available.
type AuthorService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewAuthorService creates a new author service.
func NewAuthorService(store *store.Store, logger *logger.Logger) *AuthorService {
	return &AuthorService{store: store, logger: logger}
}

// GetAuthor returns one author by local id.
func (s *AuthorService) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	author, err := s.store.Authors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("author %d not found", id)
		}
		return nil, err
	}
	return author, nil
}

// ListAuthors returns every author in the library.
func (s *AuthorService) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	return s.store.GetAllAuthors(ctx)
}

// FindByForeignID returns the author owning a catalog id, or nil.
func (s *AuthorService) FindByForeignID(ctx context.Context, foreignID string) (*domain.Author, error) {
	return s.store.FindAuthorByForeignID(ctx, foreignID)
}

// DeleteAuthor removes an author from the library.
func (s *AuthorService) DeleteAuthor(ctx context.Context, id int64) error {
	if _, err := s.GetAuthor(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteAuthor(ctx, id)
}

// authorScoringFuncs builds the ordered scoring functions for a name lookup,
// strictest first: clean-name equality-or-distance, the raw name, the name
// without a "The " prefix, then alias matching.
func authorScoringFuncs(name string) []match.ScoreFunc[*domain.Author] {
	clean := match.CleanName(name)
	cleanNoThe := match.CleanName(match.TrimThePrefix(name))

	return []match.ScoreFunc[*domain.Author]{
		func(a *domain.Author) float64 {
			return match.Similarity(a.Metadata.CleanName, clean)
		},
		func(a *domain.Author) float64 {
			return match.Similarity(match.CleanName(match.TrimThePrefix(a.Metadata.Name)), cleanNoThe)
		},
		func(a *domain.Author) float64 {
			best := 0.0
			for _, alias := range a.Metadata.Aliases {
				if s := match.Similarity(match.CleanName(alias), clean); s > best {
					best = s
				}
			}
			return best
		},
		func(a *domain.Author) float64 {
			return match.ContainsScore(a.Metadata.CleanName, clean)
		},
	}
}

// FindByNameInexact resolves a free-text name to a single library author, or
// nil when no scoring function produces an unambiguous match.
func (s *AuthorService) FindByNameInexact(ctx context.Context, name string) (*domain.Author, error) {
	authors, err := s.store.GetAllAuthors(ctx)
	if err != nil {
		return nil, err
	}

	found, ok := match.FindInexact(authors, authorScoringFuncs(name), match.AuthorTolerance)
	if !ok {
		s.logger.Debug("no unambiguous author match", "name", name, "candidates", len(authors))
		return nil, nil
	}
	return found, nil
}

// GetCandidates returns every plausible library author for a free-text name,
// for interactive disambiguation.
func (s *AuthorService) GetCandidates(ctx context.Context, name string) ([]*domain.Author, error) {
	authors, err := s.store.GetAllAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return match.Candidates(authors, authorScoringFuncs(name), match.AuthorTolerance,
		func(a *domain.Author) int64 { return a.ID }), nil
}
