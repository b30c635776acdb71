package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initEditions() error {
	editions, err := NewEntity(s, "edition:",
		func(e *domain.Edition) int64 { return e.ID },
		func(e *domain.Edition, id int64) { e.ID = id },
	)
	if err != nil {
		return err
	}

	s.Editions = editions.
		WithUniqueIndex("foreign", func(e *domain.Edition) []string {
			return []string{e.ForeignEditionID}
		}).
		WithIndex("book", func(e *domain.Edition) []string {
			return []string{strconv.FormatInt(e.BookID, 10)}
		})

	return nil
}

// FindEditionByForeignID looks up an edition by catalog id.
// Returns nil (no error) when none holds it.
func (s *Store) FindEditionByForeignID(ctx context.Context, foreignID string) (*domain.Edition, error) {
	edition, err := s.Editions.GetByIndex(ctx, "foreign", foreignID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return edition, nil
}

// GetEditionsByBook returns all editions of a book.
func (s *Store) GetEditionsByBook(ctx context.Context, bookID int64) ([]*domain.Edition, error) {
	return s.Editions.ListByIndex(ctx, "book", strconv.FormatInt(bookID, 10))
}

// GetEditionsForRefresh returns the local editions for a refresh pass:
// editions owned by the book plus any edition matching an incoming foreign
// id regardless of owner.
func (s *Store) GetEditionsForRefresh(ctx context.Context, bookID int64, foreignIDs []string) ([]*domain.Edition, error) {
	editions, err := s.GetEditionsByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(editions))
	for _, e := range editions {
		have[e.ForeignEditionID] = true
	}

	for _, foreignID := range foreignIDs {
		if have[foreignID] {
			continue
		}
		edition, err := s.FindEditionByForeignID(ctx, foreignID)
		if err != nil {
			return nil, err
		}
		if edition != nil {
			editions = append(editions, edition)
			have[foreignID] = true
		}
	}

	return editions, nil
}
