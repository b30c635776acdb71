package store

import (
	"context"
	"strconv"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initHistory() error {
	history, err := NewEntity(s, "history:",
		func(h *domain.History) int64 { return h.ID },
		func(h *domain.History, id int64) { h.ID = id },
	)
	if err != nil {
		return err
	}

	s.History = history.
		WithIndex("author", func(h *domain.History) []string {
			return []string{strconv.FormatInt(h.AuthorID, 10)}
		}).
		WithIndex("book", func(h *domain.History) []string {
			return []string{strconv.FormatInt(h.BookID, 10)}
		})

	return nil
}

// GetHistoryByAuthor returns all history entries for an author.
func (s *Store) GetHistoryByAuthor(ctx context.Context, authorID int64) ([]*domain.History, error) {
	return s.History.ListByIndex(ctx, "author", strconv.FormatInt(authorID, 10))
}

// GetHistoryByBook returns all history entries for a book.
func (s *Store) GetHistoryByBook(ctx context.Context, bookID int64) ([]*domain.History, error) {
	return s.History.ListByIndex(ctx, "book", strconv.FormatInt(bookID, 10))
}

// ReassignAuthorHistory re-points history entries from one author row to
// another. Used by merges alongside file reassignment.
func (s *Store) ReassignAuthorHistory(ctx context.Context, fromAuthorID, toAuthorID int64) error {
	items, err := s.GetHistoryByAuthor(ctx, fromAuthorID)
	if err != nil {
		return err
	}
	for _, h := range items {
		h.AuthorID = toAuthorID
	}
	return s.History.UpdateMany(ctx, items)
}

// ReassignBookHistory re-points history entries from one book row to another.
func (s *Store) ReassignBookHistory(ctx context.Context, fromBookID, toBookID int64) error {
	items, err := s.GetHistoryByBook(ctx, fromBookID)
	if err != nil {
		return err
	}
	for _, h := range items {
		h.BookID = toBookID
	}
	return s.History.UpdateMany(ctx, items)
}
